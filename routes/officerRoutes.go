package routes

import (
	"jagruk-be/controllers"
	"jagruk-be/middlewares"

	"github.com/gin-gonic/gin"
)

// OfficerRoutes sets up the officer directory routes
func OfficerRoutes(r *gin.Engine, oc *controllers.OfficerController) {
	officers := r.Group("/api/officers", middlewares.AuthMiddleware())
	{
		officers.POST("", oc.CreateOfficer)
		officers.GET("", oc.GetOfficers)
		officers.POST("/assign", oc.AssignOfficer)
		officers.PUT("/:id", oc.UpdateOfficer)
		officers.DELETE("/:id", oc.DeleteOfficer)
	}
}
