package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/database"
	"meal-scheduler/internal/metrics"
	"meal-scheduler/internal/storage"

	"go.uber.org/zap"
)

// Build wires the App from configuration: the SQLite database, the state
// store backend, the catalog, the note analyzer and the metrics sinks.
// The returned cleanup closes everything in reverse order.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var store storage.Store
	switch cfg.StoreBackend {
	case config.BackendFile:
		fileStore, err := storage.NewFileStore(cfg.StatePath)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		store = fileStore
	default:
		store = storage.NewSQLiteStore(db.SQL)
	}

	meals, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	analyzer, closeAnalyzer, err := NewAnalyzer(ctx, cfg, meals)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	a := NewApp(cfg, meals, storage.NewStateRepository(store, logger),
		WithMetricsStore(metrics.NewStore(db.SQL)),
		WithCollector(metrics.NewCollector()),
		WithAnalyzer(analyzer),
		WithLogger(logger),
	)
	logger.Info("scheduler ready",
		zap.Int("meals", len(meals)),
		zap.String("store", cfg.StoreBackend),
		zap.String("note_analyzer", cfg.NoteAnalyzer),
	)

	cleanup := func() {
		a.Close()
		if err := closeAnalyzer(); err != nil {
			logger.Warn("failed to close analyzer", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
	return a, cleanup, nil
}

// LoadCatalog reads the catalog at path. An empty path, or one that has
// not been written yet, yields the embedded catalog.
func LoadCatalog(path string) ([]catalog.Meal, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	meals, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return meals, nil
}
