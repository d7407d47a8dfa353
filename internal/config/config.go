package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"insights/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Dataset
	DataFile     string
	CSVDelimiter string

	// Backend selection
	DataBackend string

	// Missing-value policy. The per-aggregation values override
	// MissingPolicy when set.
	MissingPolicy            string
	MissingPolicyCategorical string
	MissingPolicyTemporal    string
	MissingPolicyCrossTab    string
	MissingPolicyFlag        string

	// Logging
	LogLevel  string
	LogFormat string

	// Chart cache
	ChartCacheSize int
	ChartCacheTTL  time.Duration

	// Raw-data view
	RawPageSize int

	// Requests per minute per client on the render routes; 0 disables.
	RateLimitPerMinute int
}

// Policies is the resolved missing-value policy of each aggregation kind.
type Policies struct {
	Categorical core.MissingPolicy
	Temporal    core.MissingPolicy
	CrossTab    core.MissingPolicy
	Flag        core.MissingPolicy
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataFile:     getEnv("DATA_FILE", "cleaned_reports_data.csv"),
		CSVDelimiter: getEnv("CSV_DELIMITER", ","),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		MissingPolicy:            getEnv("MISSING_POLICY", string(core.MissingExclude)),
		MissingPolicyCategorical: getEnv("MISSING_POLICY_CATEGORICAL", ""),
		MissingPolicyTemporal:    getEnv("MISSING_POLICY_TEMPORAL", ""),
		MissingPolicyCrossTab:    getEnv("MISSING_POLICY_CROSSTAB", ""),
		MissingPolicyFlag:        getEnv("MISSING_POLICY_FLAG", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ChartCacheSize: getEnvInt("CHART_CACHE_SIZE", 32),
		ChartCacheTTL:  getEnvDuration("CHART_CACHE_TTL", 10*time.Minute),

		RawPageSize: getEnvInt("RAW_PAGE_SIZE", 100),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DataFile) == "" {
		errors = append(errors, "data file path cannot be empty")
	}

	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", c.CSVDelimiter))
	} else if r, _ := utf8.DecodeRuneInString(c.CSVDelimiter); r == '"' || r == '\r' || r == '\n' {
		errors = append(errors, fmt.Sprintf("invalid CSV delimiter %q: quotes and line breaks are not allowed", c.CSVDelimiter))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate missing-value policies
	policies := []struct{ name, value string }{
		{"MISSING_POLICY", c.MissingPolicy},
		{"MISSING_POLICY_CATEGORICAL", c.MissingPolicyCategorical},
		{"MISSING_POLICY_TEMPORAL", c.MissingPolicyTemporal},
		{"MISSING_POLICY_CROSSTAB", c.MissingPolicyCrossTab},
		{"MISSING_POLICY_FLAG", c.MissingPolicyFlag},
	}
	for _, p := range policies {
		if p.value == "" {
			continue
		}
		if _, err := core.ParseMissingPolicy(p.value); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", p.name, err))
		}
	}

	// Validate logging
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	// Validate chart cache
	if c.ChartCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must be at least 1", c.ChartCacheSize))
	} else if c.ChartCacheSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must be at most 1000", c.ChartCacheSize))
	}
	if c.ChartCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid chart cache TTL %v: must be at least 1 second", c.ChartCacheTTL))
	} else if c.ChartCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid chart cache TTL %v: must be at most 24 hours", c.ChartCacheTTL))
	}

	if c.RawPageSize < 1 || c.RawPageSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid raw page size %d: must be between 1 and 10000", c.RawPageSize))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Delimiter returns the configured delimiter as a rune, ',' when unset.
func (c *Config) Delimiter() rune {
	r, size := utf8.DecodeRuneInString(c.CSVDelimiter)
	if size == 0 || r == utf8.RuneError {
		return ','
	}
	return r
}

// Policies resolves the per-aggregation missing-value policies. Call it
// after Validate; unparseable values fall back to exclude.
func (c *Config) Policies() Policies {
	def := parsePolicy(c.MissingPolicy, core.MissingExclude)
	return Policies{
		Categorical: parsePolicy(c.MissingPolicyCategorical, def),
		Temporal:    parsePolicy(c.MissingPolicyTemporal, def),
		CrossTab:    parsePolicy(c.MissingPolicyCrossTab, def),
		Flag:        parsePolicy(c.MissingPolicyFlag, def),
	}
}

func parsePolicy(value string, fallback core.MissingPolicy) core.MissingPolicy {
	if value == "" {
		return fallback
	}
	p, err := core.ParseMissingPolicy(value)
	if err != nil {
		return fallback
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
