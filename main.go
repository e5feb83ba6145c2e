package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"jagruk-be/config"
	"jagruk-be/controllers"
	"jagruk-be/routes"
	"jagruk-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := utils.NewLogger()
	defer logger.Sync()

	db := config.ConnectDB()
	if db == nil {
		logger.Fatal("Failed to connect to MongoDB")
	}
	logger.Info("MongoDB connection established")

	if err := config.EnsureIndexes(db); err != nil {
		logger.Fatalw("Failed to create indexes", "error", err)
	}

	rdb := config.ConnectRedis()
	logger.Info("Redis connection established")

	issues := config.GetCollection("issues")
	officers := config.GetCollection("officers")
	logs := config.GetCollection("logs")
	notifications := config.GetCollection("notifications")
	users := config.GetCollection("users")

	audit := utils.NewAuditSink(logs, logger)
	notifier := utils.NewNotifier(notifications, officers, rdb, logger)

	issueController := &controllers.IssueController{
		Issues:     issues,
		Classifier: utils.NewOpenRouterClassifier(os.Getenv("OPENROUTER_API_KEY")),
		Geocoder:   utils.NewOpenCageGeocoder(os.Getenv("OPENCAGE_API_KEY")),
		Audit:      audit,
		Notifier:   notifier,
	}
	officerController := &controllers.OfficerController{
		Officers: officers,
		Issues:   issues,
		Audit:    audit,
		Notifier: notifier,
	}
	logController := &controllers.LogController{Logs: logs, Audit: audit}
	notificationController := &controllers.NotificationController{
		Notifications: notifications,
		Issues:        issues,
		Officers:      officers,
		Notifier:      notifier,
		Redis:         rdb,
		Log:           logger,
	}
	authController := &controllers.AuthController{Users: users, Log: logger}

	createLimit := 10
	if v, err := strconv.Atoi(os.Getenv("ISSUE_DAILY_LIMIT")); err == nil && v > 0 {
		createLimit = v
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	routes.AuthRoutes(r, authController)
	routes.IssueRoutes(r, issueController, rdb, createLimit)
	routes.OfficerRoutes(r, officerController)
	routes.LogRoutes(r, logController)
	routes.NotificationRoutes(r, notificationController)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		logger.Fatalw("Failed to start server", "error", err)
	}
}
