package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurabot/neurabot-api/internal/domain/auth"
	"github.com/neurabot/neurabot-api/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(
	cfg *config.Config,
	handler *Handler,
	historyHandler *HistoryHandler,
	shareHandler *ShareHandler,
	socket *StreamSocket,
	authSvc auth.Service,
	logger *slog.Logger,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, logger))
	{
		api.POST("/summaries", handler.Summarize)
		api.POST("/summaries/stream", handler.SummarizeStream)
		api.GET("/modes", handler.Modes)
		api.GET("/status/upstream", handler.Upstream)
		api.GET("/ws", socket.Serve)

		api.POST("/history", optionalAuthMiddleware(authSvc), historyHandler.Save)
		api.GET("/history", optionalAuthMiddleware(authSvc), historyHandler.List)
		api.GET("/history/:id", optionalAuthMiddleware(authSvc), historyHandler.Get)

		api.POST("/share", authMiddleware(authSvc), shareHandler.Create)
		api.GET("/share/status", shareHandler.Status)
		api.GET("/share/:token", shareHandler.Resolve)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
