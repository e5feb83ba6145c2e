package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"jagruk-be/models"
	"jagruk-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const unreadCountTTL = 30 * time.Second

// NotificationController serves the per-user notification feed. Issue and
// officer references are weak ids resolved by a read-time join; a reference
// to a deleted entity simply resolves to nothing.
type NotificationController struct {
	Notifications *mongo.Collection
	Issues        *mongo.Collection
	Officers      *mongo.Collection
	Notifier      *utils.Notifier
	Redis         *redis.Client
	Log           *zap.SugaredLogger
}

// issueSummary / officerSummary are the projected shapes joined onto a
// notification for display.
type issueSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Title    string             `bson:"title" json:"title"`
	Status   models.IssueStatus `bson:"status" json:"status"`
	Category string             `bson:"category" json:"category"`
}

type officerSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"fullName" json:"fullName"`
	Email    string             `bson:"email" json:"email"`
}

// GetUserNotifications returns a user's notifications, newest first, with
// referenced issue/officer summaries resolved and the unread count attached.
func (nc *NotificationController) GetUserNotifications(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"userId": userID}
	if c.Query("unreadOnly") == "true" {
		filter["isRead"] = false
	}

	ctx, cancel := dbContext()
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := nc.Notifications.Find(ctx, filter, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0, limit)
	if err := cursor.All(ctx, &notifications); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode notifications"})
		return
	}

	total, err := nc.Notifications.CountDocuments(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	issues, officers := nc.resolveReferences(ctx, notifications)

	views := make([]gin.H, 0, len(notifications))
	for _, notification := range notifications {
		view := gin.H{"notification": notification}
		if notification.IssueID != nil {
			if summary, ok := issues[*notification.IssueID]; ok {
				view["issue"] = summary
			}
		}
		if notification.OfficerID != nil {
			if summary, ok := officers[*notification.OfficerID]; ok {
				view["officer"] = summary
			}
		}
		views = append(views, view)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"notifications": views,
		"pagination": gin.H{
			"total":      total,
			"page":       page,
			"totalPages": totalPages,
			"count":      len(views),
		},
		"unreadCount": nc.unreadCount(ctx, userID),
	})
}

// resolveReferences batch-loads the issue and officer summaries referenced
// by a page of notifications.
func (nc *NotificationController) resolveReferences(ctx context.Context, notifications []models.Notification) (map[primitive.ObjectID]issueSummary, map[primitive.ObjectID]officerSummary) {
	issueIDs := make([]primitive.ObjectID, 0)
	officerIDs := make([]primitive.ObjectID, 0)
	seenIssues := make(map[primitive.ObjectID]bool)
	seenOfficers := make(map[primitive.ObjectID]bool)
	for _, notification := range notifications {
		if notification.IssueID != nil && !seenIssues[*notification.IssueID] {
			seenIssues[*notification.IssueID] = true
			issueIDs = append(issueIDs, *notification.IssueID)
		}
		if notification.OfficerID != nil && !seenOfficers[*notification.OfficerID] {
			seenOfficers[*notification.OfficerID] = true
			officerIDs = append(officerIDs, *notification.OfficerID)
		}
	}

	issues := make(map[primitive.ObjectID]issueSummary)
	if len(issueIDs) > 0 {
		cursor, err := nc.Issues.Find(ctx, bson.M{"_id": bson.M{"$in": issueIDs}},
			options.Find().SetProjection(bson.M{"title": 1, "status": 1, "category": 1}))
		if err == nil {
			var rows []issueSummary
			if err := cursor.All(ctx, &rows); err == nil {
				for _, row := range rows {
					issues[row.ID] = row
				}
			}
		}
	}

	officers := make(map[primitive.ObjectID]officerSummary)
	if len(officerIDs) > 0 {
		cursor, err := nc.Officers.Find(ctx, bson.M{"_id": bson.M{"$in": officerIDs}},
			options.Find().SetProjection(bson.M{"fullName": 1, "email": 1}))
		if err == nil {
			var rows []officerSummary
			if err := cursor.All(ctx, &rows); err == nil {
				for _, row := range rows {
					officers[row.ID] = row
				}
			}
		}
	}

	return issues, officers
}

// unreadCount reads through the Redis cache. Cache misses and Redis outages
// both fall back to a direct count.
func (nc *NotificationController) unreadCount(ctx context.Context, userID string) int64 {
	key := utils.UnreadCountKey(userID)
	if nc.Redis != nil {
		if cached, err := nc.Redis.Get(ctx, key).Int64(); err == nil {
			return cached
		}
	}

	count, err := nc.Notifications.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		nc.Log.Warnw("unread count query failed", "userId", userID, "error", err)
		return 0
	}

	if nc.Redis != nil {
		if err := nc.Redis.Set(ctx, key, count, unreadCountTTL).Err(); err != nil {
			nc.Log.Debugw("unread count cache write failed", "error", err)
		}
	}
	return count
}

func (nc *NotificationController) invalidateUnread(ctx context.Context, userID string) {
	if nc.Redis == nil || userID == "" {
		return
	}
	if err := nc.Redis.Del(ctx, utils.UnreadCountKey(userID)).Err(); err != nil {
		nc.Log.Debugw("unread count invalidation failed", "error", err)
	}
}

// GetUnreadCount returns just the unread counter; the client polls this.
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"unreadCount": nc.unreadCount(ctx, userID)})
}

// MarkAsRead flips isRead to true. Marking an already-read notification is a
// no-op success; the flag never reverts.
func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	notificationID, err := primitive.ObjectIDFromHex(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	var notification models.Notification
	err = nc.Notifications.FindOneAndUpdate(ctx,
		bson.M{"_id": notificationID},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		}
		return
	}

	nc.invalidateUnread(ctx, notification.UserID)

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read", "notification": notification})
}

// MarkAllAsRead marks every unread notification of a user as read.
func (nc *NotificationController) MarkAllAsRead(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	result, err := nc.Notifications.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications as read"})
		return
	}

	nc.invalidateUnread(ctx, userID)

	c.JSON(http.StatusOK, gin.H{
		"message":       "All notifications marked as read",
		"modifiedCount": result.ModifiedCount,
	})
}

// DeleteNotification removes a single notification.
func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	notificationID, err := primitive.ObjectIDFromHex(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	var notification models.Notification
	err = nc.Notifications.FindOneAndDelete(ctx, bson.M{"_id": notificationID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		}
		return
	}

	nc.invalidateUnread(ctx, notification.UserID)

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// GetNotificationStats returns per-type totals with an unread split.
func (nc *NotificationController) GetNotificationStats(c *gin.Context) {
	ctx, cancel := dbContext()
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   "$type",
			"count": bson.M{"$sum": 1},
			"unreadCount": bson.M{
				"$sum": bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$isRead", false}}, 1, 0}},
			},
		}},
		{"$sort": bson.M{"count": -1}},
	}

	cursor, err := nc.Notifications.Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate notifications"})
		return
	}
	defer cursor.Close(ctx)

	statsByType := make([]bson.M, 0)
	if err := cursor.All(ctx, &statsByType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode notification stats"})
		return
	}

	total, err := nc.Notifications.CountDocuments(ctx, bson.M{})
	if err != nil {
		total = 0
	}
	totalUnread, err := nc.Notifications.CountDocuments(ctx, bson.M{"isRead": false})
	if err != nil {
		totalUnread = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"totalNotifications": total,
		"totalUnread":        totalUnread,
		"statsByType":        statsByType,
	})
}

// CleanupNotifications bulk-deletes read notifications older than 30 days.
// Expiry-based removal is handled separately by the TTL index on expiresAt.
// Safe to run repeatedly.
func (nc *NotificationController) CleanupNotifications(c *gin.Context) {
	cutoff := time.Now().AddDate(0, 0, -30)

	ctx, cancel := dbContext()
	defer cancel()

	result, err := nc.Notifications.DeleteMany(ctx, bson.M{
		"createdAt": bson.M{"$lt": cutoff},
		"isRead":    true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Old notifications cleaned up",
		"deletedCount": result.DeletedCount,
	})
}

type manualNotificationInput struct {
	UserIDs  []string `json:"userIds" binding:"required,min=1"`
	Title    string   `json:"title" binding:"required"`
	Message  string   `json:"message" binding:"required"`
	Priority string   `json:"priority"`
	Metadata bson.M   `json:"metadata"`
}

func (nc *NotificationController) sendManual(c *gin.Context, send func(context.Context, manualNotificationInput) ([]models.Notification, error)) {
	var input manualNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Priority != "" && !models.NotificationPriority(input.Priority).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	batch, err := send(ctx, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notifications"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Notifications sent",
		"count":   len(batch),
	})
}

// SendSystemAlert pushes a manual system alert to a list of users.
func (nc *NotificationController) SendSystemAlert(c *gin.Context) {
	nc.sendManual(c, func(ctx context.Context, input manualNotificationInput) ([]models.Notification, error) {
		return nc.Notifier.SystemAlert(ctx, input.UserIDs, input.Title, input.Message,
			models.NotificationPriority(input.Priority), input.Metadata)
	})
}

// SendAdminNotification pushes a manual notification to admin users.
func (nc *NotificationController) SendAdminNotification(c *gin.Context) {
	nc.sendManual(c, func(ctx context.Context, input manualNotificationInput) ([]models.Notification, error) {
		return nc.Notifier.AdminNotification(ctx, input.UserIDs, input.Title, input.Message,
			models.NotificationPriority(input.Priority), input.Metadata)
	})
}
