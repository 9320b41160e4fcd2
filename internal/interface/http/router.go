package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/stylecast/internal/infra/config"
)

// submitBodySlack covers JSON framing around the base64 photo.
const submitBodySlack = 64 << 10

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.POST("/sessions", handler.CreateSession)

		sess := api.Group("/session")
		sess.Use(sessionMiddleware(handler.sessions))
		generation := generationLimitMiddleware(cfg.HTTP.RateLimit, handler.logger)
		{
			sess.GET("", handler.GetSession)
			sess.DELETE("", handler.Reset)
			sess.POST("/submit", generation, bodyLimitMiddleware(submitBodyLimit(cfg.Session.MaxImageBytes)), handler.Submit)
			sess.POST("/dismiss", handler.Dismiss)
			sess.POST("/visualization", generation, handler.Visualize)
			sess.GET("/visualization/image", handler.Image)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

// submitBodyLimit allows a base64 encoded photo of maxImageBytes plus framing.
func submitBodyLimit(maxImageBytes int) int64 {
	if maxImageBytes <= 0 {
		return 0
	}
	return int64(maxImageBytes)*4/3 + submitBodySlack
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
