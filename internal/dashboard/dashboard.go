// Package dashboard assembles the fixed sequence of insight blocks from an
// aggregation backend.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"insights/internal/analytics"
	"insights/internal/config"
	"insights/internal/core"
	applog "insights/internal/log"
	"insights/internal/store"
)

const (
	Title       = "Streamlit Insights Application"
	Description = "Explore various insights from the cleaned reports data."
)

// ErrUnknownBlock is returned for a block id that is not in All.
var ErrUnknownBlock = errors.New("unknown dashboard block")

// Reader is everything the builder reads from a backend.
type Reader interface {
	store.ShapeReader
	store.DistributionReader
	store.TimelineReader
	store.CrossTabReader
	store.FlagReader
}

type (
	// Block is a Spec with its aggregated data. Exactly one of the data
	// fields is set, matching Spec.Aggregation, unless Err is non-nil.
	Block struct {
		Spec
		Policy       core.MissingPolicy
		Distribution *analytics.Distribution
		Timeline     *analytics.Timeline
		CrossTab     *analytics.CrossTabulation
		Flags        *analytics.FlagDistribution
		Err          error
	}

	// Dashboard is the whole rendered view.
	Dashboard struct {
		Title       string
		Description string
		Shape       analytics.ShapeSummary
		Blocks      []Block
		BuiltAt     time.Time
	}

	// Observer is told how long each block took.
	Observer func(blockID string, d time.Duration, err error)
)

// Builder computes blocks on demand. It holds no mutable state.
type Builder struct {
	reader   Reader
	policies config.Policies
	logger   *slog.Logger
	observer Observer
}

// Option configures a Builder.
type Option func(*Builder)

// WithPolicies sets the missing-value policy of each aggregation kind.
func WithPolicies(p config.Policies) Option {
	return func(b *Builder) { b.policies = p }
}

// WithLogger sets the logger used for failed blocks.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithObserver registers a timing callback.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// NewBuilder creates a builder over r. Every policy defaults to exclude.
func NewBuilder(r Reader, opts ...Option) *Builder {
	b := &Builder{
		reader: r,
		policies: config.Policies{
			Categorical: core.MissingExclude,
			Temporal:    core.MissingExclude,
			CrossTab:    core.MissingExclude,
			Flag:        core.MissingExclude,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build aggregates every block in order. A failing block carries its error
// and the rest still build; only a failure to read the shape aborts.
func (b *Builder) Build(ctx context.Context) (*Dashboard, error) {
	shape, err := b.reader.Shape(ctx)
	if err != nil {
		return nil, fmt.Errorf("read shape: %w", err)
	}

	d := &Dashboard{
		Title:       Title,
		Description: Description,
		Shape:       shape,
		Blocks:      make([]Block, 0, len(specs)),
		BuiltAt:     time.Now(),
	}
	for _, spec := range All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.Blocks = append(d.Blocks, b.build(ctx, spec))
	}
	return d, nil
}

// Block aggregates a single block by id.
func (b *Builder) Block(ctx context.Context, id string) (Block, error) {
	spec, ok := SpecByID(id)
	if !ok {
		return Block{}, fmt.Errorf("%w: %q", ErrUnknownBlock, id)
	}
	blk := b.build(ctx, spec)
	return blk, blk.Err
}

func (b *Builder) build(ctx context.Context, spec Spec) Block {
	start := time.Now()
	blk := Block{Spec: spec}

	switch spec.Aggregation {
	case AggCategorical:
		blk.Policy = b.policies.Categorical
		d, err := b.reader.Distribution(ctx, spec.Columns[0], blk.Policy)
		blk.Distribution, blk.Err = &d, err
	case AggTemporal:
		blk.Policy = b.policies.Temporal
		tl, err := b.reader.Timeline(ctx, blk.Policy)
		blk.Timeline, blk.Err = &tl, err
	case AggCrossTab:
		blk.Policy = b.policies.CrossTab
		ct, err := b.reader.CrossTab(ctx, spec.Columns[0], spec.Columns[1], blk.Policy)
		blk.CrossTab, blk.Err = &ct, err
	case AggFlags:
		blk.Policy = b.policies.Flag
		fd, err := b.reader.Flags(ctx, spec.Columns[0], blk.Policy)
		blk.Flags, blk.Err = &fd, err
	default:
		blk.Err = fmt.Errorf("block %s: unsupported aggregation %q", spec.ID, spec.Aggregation)
	}

	if blk.Err != nil {
		blk.Distribution, blk.Timeline, blk.CrossTab, blk.Flags = nil, nil, nil, nil
		b.logger.ErrorContext(ctx, "Dashboard block failed",
			applog.FieldComponent, applog.ComponentDashboard,
			applog.FieldBlock, spec.ID,
			applog.FieldOperation, applog.OpAggregate,
			applog.FieldPolicy, blk.Policy.String(),
			applog.FieldError, blk.Err.Error())
	}
	if b.observer != nil {
		b.observer(spec.ID, time.Since(start), blk.Err)
	}
	return blk
}

// Excluded is the number of rows the block left out under its policy.
func (blk Block) Excluded() int {
	switch {
	case blk.Distribution != nil:
		return blk.Distribution.Dropped
	case blk.Timeline != nil:
		return blk.Timeline.Dropped
	case blk.CrossTab != nil:
		return blk.CrossTab.Dropped
	case blk.Flags != nil:
		return blk.Flags.Dropped
	}
	return 0
}

// Empty reports whether the block has no data to show.
func (blk Block) Empty() bool {
	switch {
	case blk.Distribution != nil:
		return len(blk.Distribution.Counts) == 0
	case blk.Timeline != nil:
		return len(blk.Timeline.Buckets) == 0
	case blk.CrossTab != nil:
		return len(blk.CrossTab.RowKeys) == 0
	case blk.Flags != nil:
		return len(blk.Flags.Counts) == 0
	}
	return true
}
