package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"jagruk-be/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func newTestNotificationController(mt *mtest.T, rdb *redis.Client) *NotificationController {
	logger := zap.NewNop().Sugar()
	return &NotificationController{
		Notifications: mt.Coll,
		Issues:        mt.Coll,
		Officers:      mt.Coll,
		Notifier:      utils.NewNotifier(mt.Coll, mt.Coll, rdb, logger),
		Redis:         rdb,
		Log:           logger,
	}
}

func notificationRouter(nc *NotificationController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/notifications/user/:userId", nc.GetUserNotifications)
	r.PATCH("/notifications/:notificationId/read", nc.MarkAsRead)
	r.DELETE("/notifications/cleanup", nc.CleanupNotifications)
	r.POST("/notifications/system-alert", nc.SendSystemAlert)
	return r
}

func notificationDoc(id primitive.ObjectID, userID string, isRead bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "userId", Value: userID},
		{Key: "type", Value: "issue_created"},
		{Key: "title", Value: "New Issue Reported"},
		{Key: "message", Value: "A new issue has been reported"},
		{Key: "isRead", Value: isRead},
		{Key: "priority", Value: "medium"},
		{Key: "createdAt", Value: time.Now()},
		{Key: "updatedAt", Value: time.Now()},
	}
}

// The feed joins referenced issue summaries at read time; a reference to a
// deleted issue resolves to nothing instead of failing the page.
func TestGetUserNotifications(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("joins issues and tolerates dangling references", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)

		liveIssueID := primitive.NewObjectID()
		deletedIssueID := primitive.NewObjectID()
		withIssue := func(doc bson.D, issueID primitive.ObjectID) bson.D {
			return append(doc, bson.E{Key: "issueId", Value: issueID})
		}

		mt.AddMockResponses(
			// page of notifications, newest first
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
				withIssue(notificationDoc(primitive.NewObjectID(), "u1", false), liveIssueID),
				withIssue(notificationDoc(primitive.NewObjectID(), "u1", true), deletedIssueID),
			),
			// total for the filter
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 2}}),
			// issue join: only the live issue resolves
			mtest.CreateCursorResponse(0, "jagruk.issues", mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: liveIssueID},
					{Key: "title", Value: "Pothole near market"},
					{Key: "status", Value: "open"},
					{Key: "category", Value: "Roads & Transport"},
				}),
			// unread count
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 1}}),
		)

		w := doJSON(notificationRouter(nc), http.MethodGet, "/notifications/user/u1", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var body struct {
			Notifications []struct {
				Notification struct {
					UserID string `json:"userId"`
				} `json:"notification"`
				Issue *struct {
					Title  string `json:"title"`
					Status string `json:"status"`
				} `json:"issue"`
			} `json:"notifications"`
			Pagination struct {
				Total      int64 `json:"total"`
				Page       int   `json:"page"`
				TotalPages int   `json:"totalPages"`
				Count      int   `json:"count"`
			} `json:"pagination"`
			UnreadCount int64 `json:"unreadCount"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))

		require.Len(mt, body.Notifications, 2)
		require.NotNil(mt, body.Notifications[0].Issue)
		assert.Equal(mt, "Pothole near market", body.Notifications[0].Issue.Title)
		assert.Equal(mt, "open", body.Notifications[0].Issue.Status)
		assert.Nil(mt, body.Notifications[1].Issue)

		assert.Equal(mt, int64(2), body.Pagination.Total)
		assert.Equal(mt, 1, body.Pagination.Page)
		assert.Equal(mt, 1, body.Pagination.TotalPages)
		assert.Equal(mt, 2, body.Pagination.Count)
		assert.Equal(mt, int64(1), body.UnreadCount)
	})

	mt.Run("empty feed", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 0}}),
			mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch),
		)

		w := doJSON(notificationRouter(nc), http.MethodGet, "/notifications/user/u1", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var body struct {
			Notifications []any `json:"notifications"`
			UnreadCount   int64 `json:"unreadCount"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Empty(mt, body.Notifications)
		assert.Equal(mt, int64(0), body.UnreadCount)
	})
}

func TestMarkAsRead(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	id := primitive.NewObjectID()

	mt.Run("404 for unknown notification", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		w := doJSON(notificationRouter(nc), http.MethodPatch, "/notifications/"+id.Hex()+"/read", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		w := doJSON(notificationRouter(nc), http.MethodPatch, "/notifications/nope/read", nil)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("marks read and drops the cached counter", func(mt *mtest.T) {
		mr := miniredis.RunT(mt)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		require.NoError(mt, mr.Set(utils.UnreadCountKey("u1"), "4"))

		nc := newTestNotificationController(mt, rdb)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: notificationDoc(id, "u1", true)}))

		w := doJSON(notificationRouter(nc), http.MethodPatch, "/notifications/"+id.Hex()+"/read", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		assert.False(mt, mr.Exists(utils.UnreadCountKey("u1")))
	})

	mt.Run("already read is still a success", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: notificationDoc(id, "u1", true)}))

		w := doJSON(notificationRouter(nc), http.MethodPatch, "/notifications/"+id.Hex()+"/read", nil)
		assert.Equal(mt, http.StatusOK, w.Code)
	})
}

func TestUnreadCountCache(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("cache hit skips the database", func(mt *mtest.T) {
		mr := miniredis.RunT(mt)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		require.NoError(mt, mr.Set(utils.UnreadCountKey("u1"), "7"))

		nc := newTestNotificationController(mt, rdb)

		// no mock responses queued: a database hit would fail the test
		assert.Equal(mt, int64(7), nc.unreadCount(context.Background(), "u1"))
	})

	mt.Run("cache miss counts and caches with a TTL", func(mt *mtest.T) {
		mr := miniredis.RunT(mt)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		nc := newTestNotificationController(mt, rdb)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
			bson.D{{Key: "n", Value: 3}}))

		assert.Equal(mt, int64(3), nc.unreadCount(context.Background(), "u1"))

		cached, err := mr.Get(utils.UnreadCountKey("u1"))
		require.NoError(mt, err)
		assert.Equal(mt, "3", cached)
		assert.Equal(mt, unreadCountTTL, mr.TTL(utils.UnreadCountKey("u1")))
	})

	mt.Run("redis outage falls back to the database", func(mt *mtest.T) {
		mr := miniredis.RunT(mt)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		mr.Close()

		nc := newTestNotificationController(mt, rdb)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.notifications", mtest.FirstBatch,
			bson.D{{Key: "n", Value: 2}}))

		assert.Equal(mt, int64(2), nc.unreadCount(context.Background(), "u1"))
	})
}

func TestSendSystemAlert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("requires at least one recipient", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		w := doJSON(notificationRouter(nc), http.MethodPost, "/notifications/system-alert", gin.H{
			"userIds": []string{},
			"title":   "Maintenance",
			"message": "Scheduled downtime tonight",
		})
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("rejects unknown priority", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		w := doJSON(notificationRouter(nc), http.MethodPost, "/notifications/system-alert", gin.H{
			"userIds":  []string{"u1"},
			"title":    "Maintenance",
			"message":  "Scheduled downtime tonight",
			"priority": "extreme",
		})
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("delivers to every listed user", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		w := doJSON(notificationRouter(nc), http.MethodPost, "/notifications/system-alert", gin.H{
			"userIds": []string{"u1", "u2", "u3"},
			"title":   "Maintenance",
			"message": "Scheduled downtime tonight",
		})
		require.Equal(mt, http.StatusCreated, w.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(mt, 3, body.Count)
	})
}

func TestCleanupNotifications(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("reports the deleted count", func(mt *mtest.T) {
		nc := newTestNotificationController(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 5}))

		w := doJSON(notificationRouter(nc), http.MethodDelete, "/notifications/cleanup", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var body struct {
			DeletedCount int64 `json:"deletedCount"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(mt, int64(5), body.DeletedCount)
	})
}
