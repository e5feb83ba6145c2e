package routes

import (
	"jagruk-be/controllers"
	"jagruk-be/middlewares"

	"github.com/gin-gonic/gin"
)

// LogRoutes sets up the audit log routes
func LogRoutes(r *gin.Engine, lc *controllers.LogController) {
	logs := r.Group("/api/logs", middlewares.AuthMiddleware())
	{
		logs.POST("", lc.CreateLog)
		logs.GET("", lc.GetLogs)
		logs.GET("/stats", lc.GetLogStats)
		logs.DELETE("/cleanup", lc.CleanupLogs)
	}
}
