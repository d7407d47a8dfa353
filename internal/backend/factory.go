package backend

import (
	"context"
	"fmt"
	"log/slog"

	"insights/internal/core"
	applog "insights/internal/log"
	"insights/internal/storage"
	"insights/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config, table *core.Table) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("backend %s: no dataset loaded", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, table)
	case MemoryBackend:
		return f.createMemoryBackend(table)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, table *core.Table) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(ctx, table, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		applog.FieldComponent, applog.ComponentBackend,
		applog.FieldRows, table.Len())

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(table *core.Table) (*BackendResult, error) {
	f.logger.Info("Initialized memory backend",
		applog.FieldComponent, applog.ComponentBackend,
		applog.FieldRows, table.Len())

	return &BackendResult{
		Backend: memory.New(table),
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
