package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"horizont/internal/auth"
	"horizont/internal/database"
	"horizont/internal/handlers"
	"horizont/internal/metadata"
	"horizont/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	setupLogging()

	// Connect to database; a failed connection is fatal
	dbConfig := database.LoadConfig()
	db, err := database.Connect(dbConfig)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed the placeholder identity used when no session is present
	if err := store.NewUserStore(db).EnsurePlaceholder(context.Background()); err != nil {
		logrus.Fatalf("Failed to seed placeholder user: %v", err)
	}

	setupGracefulShutdown(db)
	setupServer(db)
}

func setupLogging() {
	logrus.SetLevel(logrus.InfoLevel)
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func setupGracefulShutdown(db *gorm.DB) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logrus.Info("Received shutdown signal, gracefully shutting down...")
		database.Close(db)
		logrus.Info("Shutdown complete")
		os.Exit(0)
	}()
}

func setupServer(db *gorm.DB) {
	fetcher := metadata.NewExtractor(metadata.LoadConfig())
	tokens := auth.NewTokenManager(getEnv("SESSION_SECRET", "horizont-dev-secret"))

	router := handlers.NewRouter(db, fetcher, tokens, logrus.StandardLogger())

	port := getEnv("PORT", "8080")
	logrus.Infof("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
