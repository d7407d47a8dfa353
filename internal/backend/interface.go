package backend

import (
	"context"

	"insights/internal/core"
	"insights/internal/store"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	store.ShapeReader
	store.DistributionReader
	store.TimelineReader
	store.CrossTabReader
	store.FlagReader
	store.RawReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend over table based on the provided config
	CreateBackend(ctx context.Context, config Config, table *core.Table) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
