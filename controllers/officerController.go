package controllers

import (
	"fmt"
	"net/http"
	"time"

	"jagruk-be/models"
	"jagruk-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OfficerController manages the officer directory and issue assignment.
type OfficerController struct {
	Officers *mongo.Collection
	Issues   *mongo.Collection
	Audit    *utils.AuditSink
	Notifier *utils.Notifier
}

// CreateOfficer inserts a new officer. The email pre-check gives a friendly
// duplicate message; the unique index is what actually closes the race, with
// the duplicate-key error mapped to the same conflict.
func (oc *OfficerController) CreateOfficer(c *gin.Context) {
	var input struct {
		FullName           string   `json:"fullName" binding:"required"`
		Email              string   `json:"email" binding:"required,email"`
		Phone              string   `json:"phone" binding:"required"`
		Role               string   `json:"role"`
		AssignedCategories []string `json:"assignedCategories"`
		AssignedLocations  []string `json:"assignedLocations"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.OfficerRole(input.Role)
	if input.Role == "" {
		role = models.RoleOfficer
	}
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	count, err := oc.Officers.CountDocuments(ctx, bson.M{"email": input.Email})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating officer"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Officer with this email already exists"})
		return
	}

	now := time.Now()
	officer := models.Officer{
		ID:                 primitive.NewObjectID(),
		FullName:           input.FullName,
		Email:              input.Email,
		Phone:              input.Phone,
		Role:               role,
		AssignedCategories: input.AssignedCategories,
		AssignedLocations:  input.AssignedLocations,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if officer.AssignedCategories == nil {
		officer.AssignedCategories = []string{}
	}
	if officer.AssignedLocations == nil {
		officer.AssignedLocations = []string{}
	}

	if _, err := oc.Officers.InsertOne(ctx, officer); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Officer with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating officer"})
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)
	oc.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Create Officer",
		Details:  fmt.Sprintf("Added officer %s (%s)", officer.FullName, officer.Email),
		Severity: models.SeverityInfo,
	}.WithRequest(c))

	c.JSON(http.StatusCreated, gin.H{"message": "Officer created successfully", "officer": officer})
}

// officerFilter assembles the directory filter. Email is a case-insensitive
// substring; location matches any element of assignedLocations; a single
// date matches that whole calendar day in server-local time, otherwise
// startDate/endDate form an inclusive range. Unparseable dates are ignored.
func officerFilter(email, location, date, startDate, endDate string) bson.M {
	query := bson.M{}

	if email != "" {
		query["email"] = bson.M{"$regex": email, "$options": "i"}
	}
	if location != "" {
		query["assignedLocations"] = bson.M{
			"$elemMatch": bson.M{"$regex": location, "$options": "i"},
		}
	}

	dateFilter := bson.M{}
	if t, ok := parseDate(startDate); ok {
		dateFilter["$gte"] = t
	}
	if t, ok := parseDate(endDate); ok {
		dateFilter["$lte"] = t
	}
	if t, ok := parseDate(date); ok {
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)
		dateFilter["$gte"] = dayStart
		dateFilter["$lte"] = dayEnd
	}
	if len(dateFilter) > 0 {
		query["createdAt"] = dateFilter
	}

	return query
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GetOfficers lists officers matching the optional filters.
func (oc *OfficerController) GetOfficers(c *gin.Context) {
	query := officerFilter(
		c.Query("email"),
		c.Query("location"),
		c.Query("date"),
		c.Query("startDate"),
		c.Query("endDate"),
	)

	ctx, cancel := dbContext()
	defer cancel()

	cursor, err := oc.Officers.Find(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error retrieving officers"})
		return
	}
	defer cursor.Close(ctx)

	officers := make([]models.Officer, 0)
	if err := cursor.All(ctx, &officers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error retrieving officers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Officers retrieved successfully", "officers": officers})
}

// UpdateOfficer shallow-merges the provided fields. Array fields are
// replaced wholesale, never appended to.
func (oc *OfficerController) UpdateOfficer(c *gin.Context) {
	officerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid officer ID"})
		return
	}

	var input struct {
		FullName           *string   `json:"fullName"`
		Email              *string   `json:"email"`
		Phone              *string   `json:"phone"`
		Role               *string   `json:"role"`
		AssignedCategories *[]string `json:"assignedCategories"`
		AssignedLocations  *[]string `json:"assignedLocations"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if input.FullName != nil {
		update["fullName"] = *input.FullName
	}
	if input.Email != nil {
		update["email"] = *input.Email
	}
	if input.Phone != nil {
		update["phone"] = *input.Phone
	}
	if input.Role != nil {
		role := models.OfficerRole(*input.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		update["role"] = role
	}
	if input.AssignedCategories != nil {
		update["assignedCategories"] = *input.AssignedCategories
	}
	if input.AssignedLocations != nil {
		update["assignedLocations"] = *input.AssignedLocations
	}

	ctx, cancel := dbContext()
	defer cancel()

	var officer models.Officer
	err = oc.Officers.FindOneAndUpdate(ctx,
		bson.M{"_id": officerID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&officer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"message": "Officer not found"})
		} else if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Officer with this email already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating officer"})
		}
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)
	oc.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Update Officer",
		Details:  fmt.Sprintf("Updated officer %s", officer.Email),
		Severity: models.SeverityInfo,
	}.WithRequest(c))

	c.JSON(http.StatusOK, gin.H{"message": "Officer updated successfully", "officer": officer})
}

// DeleteOfficer removes an officer. Issues that still reference the officer
// keep the stale assignment; it resolves to nothing at read time.
func (oc *OfficerController) DeleteOfficer(c *gin.Context) {
	officerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid officer ID"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	var officer models.Officer
	err = oc.Officers.FindOneAndDelete(ctx, bson.M{"_id": officerID}).Decode(&officer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"message": "Officer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting officer"})
		}
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)
	oc.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Delete Officer",
		Details:  fmt.Sprintf("Removed officer %s (%s)", officer.FullName, officer.Email),
		Severity: models.SeverityWarning,
	}.WithRequest(c))

	c.JSON(http.StatusOK, gin.H{"message": "Officer deleted successfully", "officer": officer})
}

// AssignOfficer links an officer to an issue and notifies both the officer
// and the reporter.
func (oc *OfficerController) AssignOfficer(c *gin.Context) {
	var input struct {
		IssueID   string `json:"issueId" binding:"required"`
		OfficerID string `json:"officerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issueId and officerId are required"})
		return
	}

	issueID, err := primitive.ObjectIDFromHex(input.IssueID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}
	officerID, err := primitive.ObjectIDFromHex(input.OfficerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid officer ID"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	var officer models.Officer
	if err := oc.Officers.FindOne(ctx, bson.M{"_id": officerID}).Decode(&officer); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Officer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve officer"})
		}
		return
	}

	var issue models.Issue
	err = oc.Issues.FindOneAndUpdate(ctx,
		bson.M{"_id": issueID},
		bson.M{"$set": bson.M{"assignedOfficer": officerID, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&issue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign officer"})
		}
		return
	}

	actorID, _ := c.Get("user_id")
	actor, _ := actorID.(string)
	oc.Audit.Record(utils.AuditEntry{
		UserType: models.UserTypeAdmin,
		UserID:   actor,
		Action:   "Assign Officer",
		IssueID:  issue.ID.Hex(),
		Details:  fmt.Sprintf("Assigned officer %s to %q", officer.FullName, issue.Title),
		Severity: models.SeverityInfo,
	}.WithRequest(c))
	oc.Notifier.OfficerAssigned(&issue, &officer)

	c.JSON(http.StatusOK, gin.H{
		"message": "Officer assigned successfully",
		"issue":   issue,
		"officer": officer,
	})
}
