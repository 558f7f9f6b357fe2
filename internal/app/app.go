package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/pipecheck/internal/butler"
	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"github.com/specialistvlad/pipecheck/internal/dataset"
	"github.com/specialistvlad/pipecheck/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	repo       *butler.Repository
	metrics    *metrics.Recorder
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It builds an isolated
// logger and loads the data repository named by cfg.RepoPath.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	repo, err := butler.Load(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load repository: %w", err)
	}
	logger.Debug("Repository loaded.", "root", repo.Root(), "raw_datasets", len(repo.Entries(dataset.Raw)))

	return &App{
		ctx:     ctx,
		outW:    outW,
		logger:  logger,
		config:  cfg,
		repo:    repo,
		metrics: metrics.New(),
	}, nil
}

// Repository returns the loaded data repository. This is primarily for testing.
func (app *App) Repository() *butler.Repository {
	return app.repo
}

// Metrics returns the run's metrics recorder. This is primarily for testing.
func (app *App) Metrics() *metrics.Recorder {
	return app.metrics
}
