package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/auth"
	"github.com/vovakirdan/townsquare-server/internal/config"
	"github.com/vovakirdan/townsquare-server/internal/service/towns"
	"github.com/vovakirdan/townsquare-server/internal/store"
	"github.com/vovakirdan/townsquare-server/internal/store/sqlite"
	"github.com/vovakirdan/townsquare-server/internal/town"
	transporthttp "github.com/vovakirdan/townsquare-server/internal/transport/http"
	"github.com/vovakirdan/townsquare-server/internal/video"
	"github.com/vovakirdan/townsquare-server/internal/video/livekit"
)

// App wires together the town core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	sessions := auth.NewService(auth.Config{
		Secret: []byte(cfg.SessionSecret),
		Issuer: cfg.SessionIssuer,
		TTL:    cfg.SessionTTL,
	})

	var videoEngine video.Engine = video.Disabled{}
	if cfg.LiveKitAPIKey != "" && cfg.LiveKitAPISecret != "" {
		videoEngine = livekit.New(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
		logger.Info().Msg("livekit video engine enabled")
	} else {
		logger.Info().Msg("video engine disabled, issuing placeholder tokens")
	}

	layout := town.DefaultLayout()
	if cfg.LayoutPath != "" {
		layout, err = town.LoadLayout(cfg.LayoutPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load layout: %w", err)
		}
		logger.Info().Str("path", cfg.LayoutPath).Msg("town layout loaded")
	}

	svc, err := towns.New(context.Background(), towns.Options{
		Store:    st,
		Sessions: sessions,
		Video:    videoEngine,
		Layout:   layout,
		Capacity: cfg.TownCapacity,
		Log:      logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init towns service: %w", err)
	}

	server := transporthttp.NewServer(svc, sessions, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

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
