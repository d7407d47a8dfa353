package analytics

import "insights/internal/core"

// Option configures a single aggregation call.
type Option func(*config)

type config struct {
	missing core.MissingPolicy
}

// WithMissing sets what the aggregation does with rows whose grouping value
// is missing. An invalid policy is ignored.
func WithMissing(p core.MissingPolicy) Option {
	return func(c *config) {
		if p.IsValid() {
			c.missing = p
		}
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		missing: core.MissingExclude,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
