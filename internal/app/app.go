// Package app wires configuration into a running set of stores and the HTTP
// handler. Both the daemon and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"uigen/internal/api"
	"uigen/internal/config"
	"uigen/internal/logging"
	"uigen/internal/middleware"
	"uigen/internal/project"
	"uigen/internal/session"
	"uigen/internal/snapshot"
	"uigen/internal/storage"
	"uigen/internal/tools"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const ShutdownTimeout = 10 * time.Second

type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	DB         *badger.DB
	Projects   *project.Store
	Snapshots  *snapshot.Store
	Sessions   *session.Manager
	Dispatcher *tools.Dispatcher
}

func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	db, err := storage.Open(cfg.Database.Path, cfg.Database.InMemory, logger.Logger)
	if err != nil {
		return nil, err
	}

	snapshots, err := snapshot.New(db, snapshot.Options{
		CacheSize:       cfg.Snapshots.CacheSize,
		Level:           cfg.Snapshots.ZstdLevel,
		MinCompressSize: cfg.Snapshots.MinCompressSize,
	}, logger.Named("snapshot"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot store: %w", err)
	}

	projects := project.NewStore(db)
	sessions, err := session.NewManager(projects, snapshots, session.Options{
		CacheSize:    cfg.Sessions.CacheSize,
		HistoryLimit: cfg.Sessions.HistoryLimit,
		Limits:       cfg.Limits,
	}, logger.Named("session"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sessions: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Projects:   projects,
		Snapshots:  snapshots,
		Sessions:   sessions,
		Dispatcher: tools.NewDispatcher(logger.Named("tools")),
	}, nil
}

// Handler returns the full HTTP surface with middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	api.NewProjectHandler(a.Sessions, a.Dispatcher, a.Logger).Register(mux)

	return middleware.Chain(
		mux,
		middleware.Recover(a.Logger),
		middleware.Logger(a.Logger),
		middleware.RequestID,
	)
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("starting server", zap.String("address", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() error {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("failed to close database", zap.Error(err))
		return err
	}
	return nil
}
