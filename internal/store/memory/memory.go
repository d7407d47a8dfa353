package memory

import (
	"context"

	"insights/internal/analytics"
	"insights/internal/core"
)

// Store answers every aggregation straight from the loaded table. The table
// is immutable, so Store needs no locking.
type Store struct {
	table *core.Table
}

// New wraps t.
func New(t *core.Table) *Store {
	return &Store{table: t}
}

// Shape implements store.ShapeReader.
func (s *Store) Shape(ctx context.Context) (analytics.ShapeSummary, error) {
	if err := ctx.Err(); err != nil {
		return analytics.ShapeSummary{}, err
	}
	return analytics.Shape(s.table), nil
}

// Distribution implements store.DistributionReader.
func (s *Store) Distribution(ctx context.Context, column string, policy core.MissingPolicy) (analytics.Distribution, error) {
	if err := ctx.Err(); err != nil {
		return analytics.Distribution{}, err
	}
	return analytics.Categorical(s.table, column, analytics.WithMissing(policy))
}

// Timeline implements store.TimelineReader.
func (s *Store) Timeline(ctx context.Context, policy core.MissingPolicy) (analytics.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return analytics.Timeline{}, err
	}
	return analytics.Temporal(s.table, analytics.WithMissing(policy)), nil
}

// CrossTab implements store.CrossTabReader.
func (s *Store) CrossTab(ctx context.Context, rowColumn, colColumn string, policy core.MissingPolicy) (analytics.CrossTabulation, error) {
	if err := ctx.Err(); err != nil {
		return analytics.CrossTabulation{}, err
	}
	return analytics.CrossTab(s.table, rowColumn, colColumn, analytics.WithMissing(policy))
}

// Flags implements store.FlagReader.
func (s *Store) Flags(ctx context.Context, column string, policy core.MissingPolicy) (analytics.FlagDistribution, error) {
	if err := ctx.Err(); err != nil {
		return analytics.FlagDistribution{}, err
	}
	return analytics.Flags(s.table, column, analytics.WithMissing(policy))
}

// RawRows implements store.RawReader.
func (s *Store) RawRows(ctx context.Context, offset, limit int) ([]string, [][]string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	return Header(s.table), s.table.RawRows(offset, limit), s.table.Len(), nil
}

// Header lists the column names of t in file order.
func Header(t *core.Table) []string {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
