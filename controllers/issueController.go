package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jagruk-be/models"
	"jagruk-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dbTimeout = 10 * time.Second

var errVoteContention = errors.New("vote toggle contention")

func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// IssueController handles the issue lifecycle: creation with AI-assisted
// tagging, listing/search, status transitions, voting and deletion. Every
// mutation records an audit entry and triggers the notification fan-out,
// both best-effort.
type IssueController struct {
	Issues     *mongo.Collection
	Classifier utils.Classifier
	Geocoder   utils.Geocoder
	Audit      *utils.AuditSink
	Notifier   *utils.Notifier
}

// ListQuery is the typed filter/sort/pagination contract shared by the list
// endpoint. Zero values fall back to documented defaults; invalid query
// input never errors.
type ListQuery struct {
	Status string
	City   string
	State  string
	SortBy string
	Order  string
	Page   int
	Limit  int
}

func parseListQuery(c *gin.Context) ListQuery {
	q := ListQuery{
		Status: c.Query("status"),
		City:   c.Query("city"),
		State:  c.Query("state"),
		SortBy: c.DefaultQuery("sortBy", "createdAt"),
		Order:  c.DefaultQuery("order", "desc"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	return q.normalized()
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	return q
}

// Filter builds the Mongo filter. Status is an exact match; city and state
// are case-insensitive substring matches.
func (q ListQuery) Filter() bson.M {
	filter := bson.M{}
	if q.Status != "" && q.Status != "all" {
		filter["status"] = q.Status
	}
	if q.City != "" {
		filter["city"] = bson.M{"$regex": q.City, "$options": "i"}
	}
	if q.State != "" {
		filter["state"] = bson.M{"$regex": q.State, "$options": "i"}
	}
	return filter
}

func (q ListQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

func (q ListQuery) FindOptions() *options.FindOptions {
	direction := -1
	if q.Order == "asc" {
		direction = 1
	}
	return options.Find().
		SetSort(bson.D{{Key: q.SortBy, Value: direction}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))
}

// CreateIssue handles the creation of a new issue. Classification and
// geocoding are best-effort: their failures substitute documented fallback
// values and never fail the creation itself.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	reporterID := userID.(string)

	var input struct {
		UserMessage string `json:"userMessage"`
		Coordinates *struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"coordinates"`
		ImageURL string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Coordinates == nil || input.Coordinates.Latitude == nil || input.Coordinates.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid location is required"})
		return
	}
	if input.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}

	lat := *input.Coordinates.Latitude
	lon := *input.Coordinates.Longitude

	analysis, err := ic.Classifier.AnalyzeImage(c.Request.Context(), input.ImageURL)
	if err != nil || !models.ValidCategory(analysis.Category) {
		analysis = utils.FallbackAnalysis()
	}
	if analysis.Title == "" {
		analysis.Title = "Unknown Issue"
	}

	location, err := ic.Geocoder.ReverseGeocode(c.Request.Context(), lat, lon)
	if err != nil {
		location = utils.Location{}
	}

	now := time.Now()
	issue := models.Issue{
		ID:          primitive.NewObjectID(),
		UserID:      reporterID,
		Title:       analysis.Title,
		UserMessage: input.UserMessage,
		Category:    analysis.Category,
		Status:      models.StatusOpen,
		ImageURL:    input.ImageURL,
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
		City:        location.City,
		State:       location.State,
		Votes:       0,
		Voters:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := dbContext()
	defer cancel()

	if _, err := ic.Issues.InsertOne(ctx, issue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create issue"})
		return
	}

	ic.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeUser,
		UserID:   reporterID,
		Action:   "Create Issue",
		IssueID:  issue.ID.Hex(),
		Details:  fmt.Sprintf("Reported %q in %s", issue.Title, issue.Place()),
		Severity: models.SeverityInfo,
	}.WithRequest(c))
	ic.Notifier.IssueCreated(&issue)

	c.JSON(http.StatusCreated, issue)
}

// ListIssues returns a filtered, sorted, paginated page of issues.
func (ic *IssueController) ListIssues(c *gin.Context) {
	q := parseListQuery(c)

	ctx, cancel := dbContext()
	defer cancel()

	filter := q.Filter()
	total, err := ic.Issues.CountDocuments(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	cursor, err := ic.Issues.Find(ctx, filter, q.FindOptions())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0, q.Limit)
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"page":       q.Page,
		"totalPages": totalPages,
		"count":      len(issues),
		"issues":     issues,
	})
}

// GetAllIssues returns the newest issues without filters. The result is
// capped so an unbounded collection cannot blow up the response.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	ctx, cancel := dbContext()
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(500)

	cursor, err := ic.Issues.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	c.JSON(http.StatusOK, issues)
}

// SearchIssues matches the query as a case-insensitive substring against
// title OR category OR city OR state.
func (ic *IssueController) SearchIssues(c *gin.Context) {
	query := c.Query("query")

	ctx, cancel := dbContext()
	defer cancel()

	filter := bson.M{}
	if query != "" {
		regex := bson.M{"$regex": query, "$options": "i"}
		filter["$or"] = []bson.M{
			{"title": regex},
			{"category": regex},
			{"city": regex},
			{"state": regex},
		}
	}

	cursor, err := ic.Issues.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search issues"})
		return
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	c.JSON(http.StatusOK, issues)
}

// GetIssuesByUser returns the issues reported by a user, newest first.
// A user with no issues gets 200 and an empty array; 404 is reserved for
// malformed requests, not empty result sets.
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	cursor, err := ic.Issues.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	c.JSON(http.StatusOK, issues)
}

// UpdateIssueStatus applies a status transition. Any of the five statuses
// may follow any other; only membership in the enum is validated.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newStatus := models.IssueStatus(input.Status)
	if !newStatus.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	now := time.Now()
	var before models.Issue
	err = ic.Issues.FindOneAndUpdate(ctx,
		bson.M{"_id": issueID},
		bson.M{"$set": bson.M{"status": newStatus, "updatedAt": now}},
	).Decode(&before)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update issue"})
		}
		return
	}

	previous := before.Status
	issue := before
	issue.Status = newStatus
	issue.UpdatedAt = now

	severity := models.SeverityWarning
	if newStatus == models.StatusResolved {
		severity = models.SeverityInfo
	}
	ic.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Update Issue Status",
		IssueID:  issue.ID.Hex(),
		Details:  fmt.Sprintf("Status changed from %q to %q", previous, newStatus),
		Severity: severity,
	}.WithRequest(c))
	ic.Notifier.StatusUpdated(&issue, previous, actor)

	c.JSON(http.StatusOK, issue)
}

// DeleteIssue removes an issue permanently. Logs and notifications that
// reference it are left in place by design.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)

	ctx, cancel := dbContext()
	defer cancel()

	var issue models.Issue
	err = ic.Issues.FindOneAndDelete(ctx, bson.M{"_id": issueID}).Decode(&issue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete issue"})
		}
		return
	}

	ic.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Delete Issue",
		IssueID:  issueID.Hex(),
		Details:  fmt.Sprintf("Deleted %q reported in %s", issue.Title, issue.City),
		Severity: models.SeverityWarning,
	}.WithRequest(c))

	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// ToggleVote adds the caller's vote to an issue, or removes it when already
// present. Both directions are single conditional updates guarded by voter
// membership, so concurrent toggles from different voters cannot lose
// updates and votes can never drop below zero.
func (ic *IssueController) ToggleVote(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	voterVal, _ := c.Get("user_id")
	voter, _ := voterVal.(string)
	if voter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Voter ID is required"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	now := time.Now()

	var issue models.Issue
	var voted bool
	var toggleErr error

	// A toggle from the same voter can race its own retry between the two
	// branches, so attempt the pair a few times before giving up.
	for attempt := 0; attempt < 3; attempt++ {
		err = ic.Issues.FindOneAndUpdate(ctx,
			bson.M{"_id": issueID, "voters": bson.M{"$ne": voter}},
			bson.M{
				"$addToSet": bson.M{"voters": voter},
				"$inc":      bson.M{"votes": 1},
				"$set":      bson.M{"updatedAt": now},
			},
			after,
		).Decode(&issue)
		if err == nil {
			voted = true
			toggleErr = nil
			break
		}
		if err != mongo.ErrNoDocuments {
			toggleErr = err
			break
		}

		err = ic.Issues.FindOneAndUpdate(ctx,
			bson.M{"_id": issueID, "voters": voter},
			bson.M{
				"$pull": bson.M{"voters": voter},
				"$inc":  bson.M{"votes": -1},
				"$set":  bson.M{"updatedAt": now},
			},
			after,
		).Decode(&issue)
		if err == nil {
			voted = false
			toggleErr = nil
			break
		}
		if err != mongo.ErrNoDocuments {
			toggleErr = err
			break
		}

		// Both branches missed: either the issue is gone, or a concurrent
		// toggle by the same voter flipped membership between the two
		// conditional updates. Distinguish before retrying.
		count, err := ic.Issues.CountDocuments(ctx, bson.M{"_id": issueID})
		if err != nil {
			toggleErr = err
			break
		}
		if count == 0 {
			toggleErr = mongo.ErrNoDocuments
			break
		}
		toggleErr = errVoteContention
	}

	if toggleErr == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}
	if toggleErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle vote"})
		return
	}

	action := "Vote Removed"
	if voted {
		action = "Vote Cast"
	}
	ic.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeUser,
		UserID:   voter,
		Action:   action,
		IssueID:  issueID.Hex(),
		Details:  fmt.Sprintf("Issue %q now has %d votes", issue.Title, issue.Votes),
		Severity: models.SeverityInfo,
	}.WithRequest(c))
	if voted {
		ic.Notifier.VoteReceived(&issue, voter)
	}

	c.JSON(http.StatusOK, issue)
}

// GetIssueAnalytics returns dashboard aggregates: counts per category, a
// 7-day creation series, the top voted issues, and headline totals.
func (ic *IssueController) GetIssueAnalytics(c *gin.Context) {
	ctx, cancel := dbContext()
	defer cancel()

	categoryPipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		{"$project": bson.M{"name": "$_id", "value": "$count", "_id": 0}},
	}
	categoryCursor, err := ic.Issues.Aggregate(ctx, categoryPipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get category analytics"})
		return
	}
	defer categoryCursor.Close(ctx)

	var issuesByCategory []bson.M
	if err := categoryCursor.All(ctx, &issuesByCategory); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode category analytics"})
		return
	}

	var last7Days []gin.H
	for i := 6; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		next := day.AddDate(0, 0, 1)

		count, err := ic.Issues.CountDocuments(ctx, bson.M{
			"createdAt": bson.M{"$gte": day, "$lt": next},
		})
		if err != nil {
			count = 0
		}
		last7Days = append(last7Days, gin.H{"date": day.Format("2006-01-02"), "count": count})
	}

	topCursor, err := ic.Issues.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "votes", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(5).
		SetProjection(bson.M{"title": 1, "category": 1, "votes": 1}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top voted issues"})
		return
	}
	defer topCursor.Close(ctx)

	topVotedIssues := make([]models.Issue, 0, 5)
	if err := topCursor.All(ctx, &topVotedIssues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode top voted issues"})
		return
	}

	totalIssues, err := ic.Issues.CountDocuments(ctx, bson.M{})
	if err != nil {
		totalIssues = 0
	}
	openIssues, err := ic.Issues.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []models.IssueStatus{models.StatusOpen, models.StatusInProgress, models.StatusPending}},
	})
	if err != nil {
		openIssues = 0
	}

	var totalVotes int64
	voteCursor, err := ic.Issues.Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$votes"}}},
	})
	if err == nil {
		var rows []struct {
			Total int64 `bson:"total"`
		}
		if err := voteCursor.All(ctx, &rows); err == nil && len(rows) > 0 {
			totalVotes = rows[0].Total
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"issuesByCategory": issuesByCategory,
		"last7Days":        last7Days,
		"topVotedIssues":   topVotedIssues,
		"totalIssues":      totalIssues,
		"totalVotes":       totalVotes,
		"openIssues":       openIssues,
	})
}

// RecentIssues returns the newest issues projected down to map-pin fields.
func (ic *IssueController) RecentIssues(c *gin.Context) {
	ctx, cancel := dbContext()
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(19).
		SetProjection(bson.M{
			"_id":         1,
			"title":       1,
			"coordinates": 1,
			"city":        1,
			"state":       1,
			"category":    1,
			"createdAt":   1,
		})

	cursor, err := ic.Issues.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recent issues"})
		return
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode recent issues"})
		return
	}

	pins := make([]gin.H, 0, len(issues))
	for _, issue := range issues {
		pins = append(pins, gin.H{
			"id":        issue.ID.Hex(),
			"title":     issue.Title,
			"latitude":  issue.Coordinates.Latitude,
			"longitude": issue.Coordinates.Longitude,
			"city":      issue.City,
			"state":     issue.State,
			"category":  issue.Category,
			"createdAt": issue.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, pins)
}
