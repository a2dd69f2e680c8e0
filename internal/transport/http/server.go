package http

import (
	stdhttp "net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/auth"
	"github.com/vovakirdan/voicerelay-server/internal/config"
	"github.com/vovakirdan/voicerelay-server/internal/core"
	"github.com/vovakirdan/voicerelay-server/internal/metrics"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthResponse carries an issued signaling credential.
type AuthResponse struct {
	Token string `json:"token"`
}

// NewServer builds the HTTP server: health, metrics, static assets, the
// OAuth credential flow and the signaling websocket.
func NewServer(registry *core.Registry, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)
	engine.GET("/api/stats", statsHandler(registry))
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.GET("/favicon.ico", func(c *gin.Context) { c.Status(stdhttp.StatusNoContent) })

	if cfg.StaticDir != "" {
		engine.Static("/static", cfg.StaticDir)
		engine.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(cfg.StaticDir, "index.html"))
		})
	}

	if cfg.OAuth.Enabled() {
		oh := NewOAuthHandlers(cfg.OAuth, authService, logger)
		engine.GET("/auth/login", oh.Login)
		engine.GET("/auth/callback", oh.Callback)
	}

	ws := NewWSHandler(registry, authService, cfg, logger)
	engine.GET("/ws", ws.Handle)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}

func statsHandler(registry *core.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, clients := registry.Stats()
		c.JSON(stdhttp.StatusOK, gin.H{"rooms": rooms, "clients": clients})
	}
}
