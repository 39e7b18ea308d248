package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the HTTP surface. The returned handler has CORS applied
// so browser dashboards can talk to the API directly.
func NewRouter(app *App) http.Handler {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	h := newHandlers(app)

	router.GET("/healthz", h.Healthz)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/stream/start", h.StartStream)
		apiV1.POST("/stream/stop", h.StopStream)
		apiV1.GET("/status", h.Status)
		apiV1.GET("/snapshot.jpg", h.Snapshot)
		apiV1.POST("/capture", h.Capture)
		apiV1.GET("/ws", h.EventFeed)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
			"path":  c.Request.URL.Path,
		})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:         86400,
	})
	return corsHandler.Handler(router)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("web: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
