package routes

import (
	"jagruk-be/controllers"
	"jagruk-be/middlewares"

	"github.com/gin-gonic/gin"
)

// NotificationRoutes sets up the notification routes
func NotificationRoutes(r *gin.Engine, nc *controllers.NotificationController) {
	notifications := r.Group("/api/notifications", middlewares.AuthMiddleware())
	{
		notifications.GET("/user/:userId", nc.GetUserNotifications)
		notifications.GET("/user/:userId/unread-count", nc.GetUnreadCount)
		notifications.PATCH("/user/:userId/mark-all-read", nc.MarkAllAsRead)
		notifications.PATCH("/:notificationId/read", nc.MarkAsRead)
		notifications.DELETE("/cleanup", nc.CleanupNotifications)
		notifications.DELETE("/:notificationId", nc.DeleteNotification)
		notifications.GET("/stats", nc.GetNotificationStats)
		notifications.POST("/system-alert", nc.SendSystemAlert)
		notifications.POST("/admin", nc.SendAdminNotification)
	}
}
