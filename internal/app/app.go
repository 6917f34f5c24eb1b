package app

import (
	"context"
	"fmt"
	"net/http"

	"phonesim/pkg/config"
	"phonesim/pkg/gen"
	"phonesim/pkg/logger"
	"phonesim/pkg/sim"
	"phonesim/pkg/store"

	"phonesim/internal/poller"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	addr    string
	dbPath  string
	version string

	svc    *sim.Service
	srv    *http.Server
	cancel context.CancelFunc
}

// New opens the store and builds the engine. It does not start the HTTP
// server or the poller; call Run to start those and block until shutdown.
func New(cfg *config.Config, addr, dbPath, version string) (*App, error) {
	if err := store.Open(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dbPath, err)
	}
	svc := sim.New(sim.StoreRepo{}, buildGenerator(cfg), cfg)
	return &App{cfg: cfg, addr: addr, dbPath: dbPath, version: version, svc: svc}, nil
}

// buildGenerator selects the text-generation backend from config.
func buildGenerator(cfg *config.Config) gen.Generator {
	if cfg.Generation.Backend == "openai" && cfg.Generation.APIKey != "" {
		g := gen.NewOpenAIGenerator(cfg.Generation.APIKey, cfg.Generation.Model)
		if cfg.Generation.BaseURL != "" {
			g.SetBaseURL(cfg.Generation.BaseURL)
		}
		return g
	}
	logger.Info("generation_backend_static")
	return &gen.StaticGenerator{}
}

// Run starts the periodic poller and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	cancelPoll, err := poller.Start(pollCtx, a.svc, a.cfg.Scheduler.Cron)
	if err != nil {
		return err
	}
	defer cancelPoll()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	return store.Close()
}
