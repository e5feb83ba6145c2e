package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jagruk-be/models"
	"jagruk-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LogController exposes the audit log: manual appends, filtered retrieval,
// aggregate statistics and age-based cleanup. Unlike the fire-and-forget
// writes triggered by other handlers, the manual create path surfaces
// failures to the caller.
type LogController struct {
	Logs  *mongo.Collection
	Audit *utils.AuditSink
}

// CreateLog appends an audit entry on behalf of the caller.
func (lc *LogController) CreateLog(c *gin.Context) {
	var input struct {
		UserType   string `json:"userType" binding:"required"`
		UserID     string `json:"userId" binding:"required"`
		Action     string `json:"action" binding:"required"`
		IssueID    string `json:"issueId"`
		Details    string `json:"details"`
		Severity   string `json:"severity"`
		IPAddress  string `json:"ipAddress"`
		DeviceInfo string `json:"deviceInfo"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	entry, err := lc.Audit.Append(ctx, utils.AuditEntry{
		UserType:   models.LogUserType(input.UserType),
		UserID:     input.UserID,
		Action:     input.Action,
		IssueID:    input.IssueID,
		Details:    input.Details,
		Severity:   models.LogSeverity(input.Severity),
		IPAddress:  input.IPAddress,
		DeviceInfo: input.DeviceInfo,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// logFilter assembles the list filter. Action is a case-insensitive
// substring; the rest are exact matches; dates bound createdAt inclusively.
func logFilter(userType, action, severity, userID, startDate, endDate string) bson.M {
	filter := bson.M{}
	if userType != "" {
		filter["userType"] = userType
	}
	if action != "" {
		filter["action"] = bson.M{"$regex": action, "$options": "i"}
	}
	if severity != "" {
		filter["severity"] = severity
	}
	if userID != "" {
		filter["userId"] = userID
	}

	dateFilter := bson.M{}
	if t, ok := parseDate(startDate); ok {
		dateFilter["$gte"] = t
	}
	if t, ok := parseDate(endDate); ok {
		dateFilter["$lte"] = t
	}
	if len(dateFilter) > 0 {
		filter["createdAt"] = dateFilter
	}
	return filter
}

// GetLogs returns a filtered, sorted, paginated page of audit entries.
func (lc *LogController) GetLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	sortBy := c.DefaultQuery("sortBy", "createdAt")
	direction := -1
	if c.DefaultQuery("order", "desc") == "asc" {
		direction = 1
	}

	filter := logFilter(
		c.Query("userType"),
		c.Query("action"),
		c.Query("severity"),
		c.Query("userId"),
		c.Query("startDate"),
		c.Query("endDate"),
	)

	ctx, cancel := dbContext()
	defer cancel()

	total, err := lc.Logs.CountDocuments(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count logs"})
		return
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: direction}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := lc.Logs.Find(ctx, filter, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve logs"})
		return
	}
	defer cursor.Close(ctx)

	logs := make([]models.Log, 0, limit)
	if err := cursor.All(ctx, &logs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode logs"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"page":       page,
		"totalPages": totalPages,
		"count":      len(logs),
		"logs":       logs,
	})
}

// GetLogStats returns aggregate statistics: counts by severity and user
// type, the ten most frequent actions, and the ten most recent entries.
func (lc *LogController) GetLogStats(c *gin.Context) {
	ctx, cancel := dbContext()
	defer cancel()

	severityStats, err := lc.groupCounts(c, "$severity", nil)
	if err != nil {
		return
	}

	topActions, err := lc.groupCounts(c, "$action", []bson.M{
		{"$sort": bson.M{"count": -1}},
		{"$limit": 10},
	})
	if err != nil {
		return
	}

	userTypeStats, err := lc.groupCounts(c, "$userType", nil)
	if err != nil {
		return
	}

	recentCursor, err := lc.Logs.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(10).
		SetProjection(bson.M{"action": 1, "userType": 1, "userId": 1, "createdAt": 1, "severity": 1}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recent activity"})
		return
	}
	defer recentCursor.Close(ctx)

	recentActivity := make([]models.Log, 0, 10)
	if err := recentCursor.All(ctx, &recentActivity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode recent activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"severityStats":  severityStats,
		"topActions":     topActions,
		"userTypeStats":  userTypeStats,
		"recentActivity": recentActivity,
	})
}

func (lc *LogController) groupCounts(c *gin.Context, field string, extra []bson.M) ([]bson.M, error) {
	ctx, cancel := dbContext()
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
	}
	pipeline = append(pipeline, extra...)

	cursor, err := lc.Logs.Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate logs"})
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := make([]bson.M, 0)
	if err := cursor.All(ctx, &rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode log stats"})
		return nil, err
	}
	return rows, nil
}

// logCleanupFilter selects entries older than the cutoff, excluding critical
// ones: those are retained permanently as an audit-trail guarantee.
func logCleanupFilter(cutoff time.Time) bson.M {
	return bson.M{
		"createdAt": bson.M{"$lt": cutoff},
		"severity":  bson.M{"$ne": models.SeverityCritical},
	}
}

// CleanupLogs deletes non-critical entries older than the given number of
// days (default 90).
func (lc *LogController) CleanupLogs(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 1 {
		days = 90
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	ctx, cancel := dbContext()
	defer cancel()

	result, err := lc.Logs.DeleteMany(ctx, logCleanupFilter(cutoff))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Deleted %d log entries older than %d days", result.DeletedCount, days),
		"deletedCount": result.DeletedCount,
	})
}
