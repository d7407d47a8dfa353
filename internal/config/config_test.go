package config

import (
	"strings"
	"testing"
	"time"

	"insights/internal/core"
)

func validConfig() Config {
	return Config{
		Port:           "8081",
		DataFile:       "reports.csv",
		CSVDelimiter:   ",",
		DataBackend:    "memory",
		MissingPolicy:  "exclude",
		LogLevel:       "info",
		LogFormat:      "text",
		ChartCacheSize: 32,
		ChartCacheTTL:  10 * time.Minute,
		RawPageSize:    100,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid memory backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid sqlite backend with bucket overrides",
			mutate:  func(c *Config) { c.DataBackend = "sqlite"; c.MissingPolicyTemporal = "bucket"; c.CSVDelimiter = ";" },
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty data file",
			mutate:      func(c *Config) { c.DataFile = " " },
			wantErr:     true,
			errorString: "data file path cannot be empty",
		},
		{
			name:        "multi-character delimiter",
			mutate:      func(c *Config) { c.CSVDelimiter = "||" },
			wantErr:     true,
			errorString: "must be a single character",
		},
		{
			name:        "quote delimiter",
			mutate:      func(c *Config) { c.CSVDelimiter = `"` },
			wantErr:     true,
			errorString: "quotes and line breaks are not allowed",
		},
		{
			name:        "invalid backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets'",
		},
		{
			name:        "invalid per-aggregation policy",
			mutate:      func(c *Config) { c.MissingPolicyCrossTab = "drop" },
			wantErr:     true,
			errorString: "MISSING_POLICY_CROSSTAB",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "cache TTL too short",
			mutate:      func(c *Config) { c.ChartCacheTTL = 10 * time.Millisecond },
			wantErr:     true,
			errorString: "must be at least 1 second",
		},
		{
			name:        "negative rate limit",
			mutate:      func(c *Config) { c.RateLimitPerMinute = -1 },
			wantErr:     true,
			errorString: "invalid rate limit -1: must not be negative",
		},
		{
			name:        "raw page size zero",
			mutate:      func(c *Config) { c.RawPageSize = 0 },
			wantErr:     true,
			errorString: "invalid raw page size 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want error containing %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.LogLevel = "loud"
	cfg.ChartCacheSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if n := strings.Count(err.Error(), "\n- "); n != 3 {
		t.Errorf("expected 3 problems, got %d: %v", n, err)
	}
}

func TestConfig_Policies(t *testing.T) {
	cfg := validConfig()
	cfg.MissingPolicy = "bucket"
	cfg.MissingPolicyCategorical = "exclude"

	got := cfg.Policies()
	want := Policies{
		Categorical: core.MissingExclude,
		Temporal:    core.MissingBucket,
		CrossTab:    core.MissingBucket,
		Flag:        core.MissingBucket,
	}
	if got != want {
		t.Errorf("Policies() = %+v, want %+v", got, want)
	}

	cfg = validConfig()
	cfg.MissingPolicy = ""
	if p := cfg.Policies().Flag; p != core.MissingExclude {
		t.Errorf("empty default policy should resolve to exclude, got %s", p)
	}
}

func TestConfig_Delimiter(t *testing.T) {
	cfg := validConfig()
	if cfg.Delimiter() != ',' {
		t.Errorf("Delimiter() = %q, want ','", cfg.Delimiter())
	}
	cfg.CSVDelimiter = ";"
	if cfg.Delimiter() != ';' {
		t.Errorf("Delimiter() = %q, want ';'", cfg.Delimiter())
	}
	cfg.CSVDelimiter = ""
	if cfg.Delimiter() != ',' {
		t.Errorf("empty delimiter should default to ','")
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		for _, key := range []string{"PORT", "DATA_FILE", "DATA_BACKEND", "MISSING_POLICY", "CHART_CACHE_TTL", "RAW_PAGE_SIZE", "RATE_LIMIT_PER_MINUTE"} {
			t.Setenv(key, "")
		}
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.DataFile != "cleaned_reports_data.csv" {
			t.Errorf("Load() DataFile = %v, want cleaned_reports_data.csv", cfg.DataFile)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.MissingPolicy != "exclude" {
			t.Errorf("Load() MissingPolicy = %v, want exclude", cfg.MissingPolicy)
		}
		if cfg.ChartCacheTTL != 10*time.Minute {
			t.Errorf("Load() ChartCacheTTL = %v, want 10m", cfg.ChartCacheTTL)
		}
		if cfg.RateLimitPerMinute != 120 {
			t.Errorf("Load() RateLimitPerMinute = %v, want 120", cfg.RateLimitPerMinute)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DATA_BACKEND", "sqlite")
		t.Setenv("MISSING_POLICY_TEMPORAL", "bucket")
		t.Setenv("CHART_CACHE_SIZE", "8")
		t.Setenv("CHART_CACHE_TTL", "1m")
		t.Setenv("RAW_PAGE_SIZE", "not-a-number")

		cfg := Load()

		if cfg.Port != "9090" || cfg.DataBackend != "sqlite" {
			t.Errorf("unexpected port/backend: %s/%s", cfg.Port, cfg.DataBackend)
		}
		if cfg.Policies().Temporal != core.MissingBucket {
			t.Errorf("Temporal policy = %s, want bucket", cfg.Policies().Temporal)
		}
		if cfg.ChartCacheSize != 8 || cfg.ChartCacheTTL != time.Minute {
			t.Errorf("unexpected cache config: %d/%v", cfg.ChartCacheSize, cfg.ChartCacheTTL)
		}
		if cfg.RawPageSize != 100 {
			t.Errorf("invalid RAW_PAGE_SIZE should fall back to 100, got %d", cfg.RawPageSize)
		}
	})
}
