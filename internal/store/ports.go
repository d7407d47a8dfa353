// Package store defines the read ports the dashboard aggregates through.
// Implementations live in store/memory (straight over the loaded table) and
// storage (SQL over an in-memory SQLite copy).
package store

import (
	"context"

	"insights/internal/analytics"
	"insights/internal/core"
)

// Ports for aggregation backends.
type (
	// ShapeReader describes the loaded dataset.
	ShapeReader interface {
		Shape(ctx context.Context) (analytics.ShapeSummary, error)
	}

	// DistributionReader counts rows per value of one column.
	DistributionReader interface {
		Distribution(ctx context.Context, column string, policy core.MissingPolicy) (analytics.Distribution, error)
	}

	// TimelineReader counts rows per creation month.
	TimelineReader interface {
		Timeline(ctx context.Context, policy core.MissingPolicy) (analytics.Timeline, error)
	}

	// CrossTabReader counts rows per pair of column values.
	CrossTabReader interface {
		CrossTab(ctx context.Context, rowColumn, colColumn string, policy core.MissingPolicy) (analytics.CrossTabulation, error)
	}

	// FlagReader counts rows per value of a flag column.
	FlagReader interface {
		Flags(ctx context.Context, column string, policy core.MissingPolicy) (analytics.FlagDistribution, error)
	}

	// RawReader pages through the untouched input rows.
	RawReader interface {
		// RawRows returns the header and a window of rows starting at offset.
		RawRows(ctx context.Context, offset, limit int) (header []string, rows [][]string, total int, err error)
	}
)
