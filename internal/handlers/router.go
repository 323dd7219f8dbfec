package handlers

import (
	"time"

	"horizont/internal/auth"
	"horizont/internal/discussions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter assembles a ready-to-mount request handler from a database
// connection and fetcher. Each instance is stateless beyond its store
// connection, so a supervisor can run any number of them side by side.
func NewRouter(db *gorm.DB, fetcher discussions.Fetcher, tokens *auth.TokenManager, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	apiHandler := NewAPIHandler(db, fetcher, log)
	docsHandler := NewDocsHandler()

	r.GET("/health", apiHandler.HealthCheck)
	r.GET("/doc/:doc", docsHandler.ServeMarkdownAsHTML)

	r.POST("/api", tokens.Identify(), apiHandler.Handle)

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	}
}
