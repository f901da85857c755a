package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"reposummarizer/internal/gateway/config"
	"reposummarizer/internal/gateway/handler"
	"reposummarizer/internal/gateway/server"
)

type App struct {
	server *server.Server
	svc    *Service
}

func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(context.Background(), cfg, log.Default())
}

// NewWithConfig wires an App from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	svc, err := NewService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Routing & Server
	h := handler.New(svc, logger)
	mux := server.NewMux(h, logger, svc.Metrics)
	srv := server.New(cfg.Port, mux)

	return &App{server: srv, svc: svc}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.svc.Close())
}
