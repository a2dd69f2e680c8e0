package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/auth"
	"github.com/vovakirdan/voicerelay-server/internal/config"
	"github.com/vovakirdan/voicerelay-server/internal/core"
	"github.com/vovakirdan/voicerelay-server/internal/store"
	"github.com/vovakirdan/voicerelay-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/voicerelay-server/internal/transport/http"
)

const sessionPurgeInterval = time.Hour

// App wires together the room registry, auth service and transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("session store initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		TTL:      cfg.Auth.SessionTTL,
	}
	authService := auth.NewService(st, jwtConfig, cfg.Auth.EntitlementURL, logger)

	if cfg.Auth.Required {
		logger.Info().Str("entitlement_url", cfg.Auth.EntitlementURL).Msg("join authorization enabled")
	} else {
		logger.Warn().Msg("join authorization disabled; anyone may join")
	}

	registry := core.NewRegistry(logger)
	server := transporthttp.NewServer(registry, authService, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.purgeSessions(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// purgeSessions periodically drops expired credential sessions.
func (a *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := a.store.DeleteExpiredSessions(ctx, time.Now().UTC())
			if err != nil {
				a.log.Warn().Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				a.log.Debug().Int64("deleted", n).Msg("purged expired sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
