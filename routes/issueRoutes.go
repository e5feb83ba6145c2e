package routes

import (
	"jagruk-be/controllers"
	"jagruk-be/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, rdb *redis.Client, createLimit int) {
	api := r.Group("/api")
	{
		api.POST("/issues", middlewares.AuthMiddleware(), middlewares.IssueRateLimiter(rdb, createLimit), ic.CreateIssue)
		api.GET("/issues", ic.ListIssues)
		api.GET("/issues/all", ic.GetAllIssues)
		api.GET("/issues/search", ic.SearchIssues)
		api.GET("/issues/recent", ic.RecentIssues)
		api.GET("/issues/analytics", middlewares.AuthMiddleware(), ic.GetIssueAnalytics)
		api.GET("/user/:userId/issues", middlewares.AuthMiddleware(), ic.GetIssuesByUser)
		api.PATCH("/issues/:id/status", middlewares.AuthMiddleware(), ic.UpdateIssueStatus)
		api.DELETE("/issues/:id", middlewares.AuthMiddleware(), ic.DeleteIssue)
		api.POST("/issues/:id/vote", middlewares.AuthMiddleware(), ic.ToggleVote)
	}
}
