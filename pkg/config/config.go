// Package config loads the run configuration from qodana.yaml, QODANA_*
// environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// Sentinel validation errors. Each wrapped error names the offending key.
var (
	// ErrNegativeThreshold indicates a problem count threshold below zero.
	ErrNegativeThreshold = errors.New("threshold must be non-negative")
	// ErrCoverageRange indicates a coverage threshold outside 0..100.
	ErrCoverageRange = errors.New("coverage threshold must be between 0 and 100")
	// ErrUnknownSeverity indicates a severity threshold for an unknown severity.
	ErrUnknownSeverity = errors.New("unknown severity")
	// ErrInvalidQueueCapacity indicates a non-positive writer queue.
	ErrInvalidQueueCapacity = errors.New("writer.queueCapacity must be positive")
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("writer.workers must be non-negative")
	// ErrInvalidQuota indicates a negative or unnamed quota.
	ErrInvalidQuota = errors.New("invalid quota")
	// ErrInvalidLogLevel indicates an unknown logging level.
	ErrInvalidLogLevel = errors.New("logging.level is not a valid level")
	// ErrInvalidSampleRatio indicates a sample ratio outside 0..1.
	ErrInvalidSampleRatio = errors.New("observability.sampleRatio must be between 0 and 1")
	// ErrMissingResultsDir indicates an empty results directory.
	ErrMissingResultsDir = errors.New("resultsDir must not be empty")
)

const maxCoverage = 100

// Config holds the run configuration.
type Config struct {
	ResultsDir        string              `mapstructure:"resultsDir"`
	FailThreshold     *int                `mapstructure:"failThreshold"`
	FailureConditions FailureConditions   `mapstructure:"failureConditions"`
	Baseline          BaselineConfig      `mapstructure:"baseline"`
	Writer            WriterConfig        `mapstructure:"writer"`
	Quota             QuotaConfig         `mapstructure:"quota"`
	Logging           LoggingConfig       `mapstructure:"logging"`
	Observability     ObservabilityConfig `mapstructure:"observability"`
	Coverage          CoverageConfig      `mapstructure:"coverage"`
	Scope             ScopeConfig         `mapstructure:"scope"`
	Report            ReportConfig        `mapstructure:"report"`
}

// FailureConditions groups the exit-status thresholds.
type FailureConditions struct {
	SeverityThresholds     SeverityThresholds     `mapstructure:"severityThresholds"`
	TestCoverageThresholds TestCoverageThresholds `mapstructure:"testCoverageThresholds"`
}

// SeverityThresholds bounds problem counts, overall and per severity.
type SeverityThresholds struct {
	Any      *int `mapstructure:"any"`
	Critical *int `mapstructure:"critical"`
	High     *int `mapstructure:"high"`
	Moderate *int `mapstructure:"moderate"`
	Low      *int `mapstructure:"low"`
	Info     *int `mapstructure:"info"`
}

// TestCoverageThresholds are minimum coverage percentages.
type TestCoverageThresholds struct {
	Total *float64 `mapstructure:"total"`
	Fresh *float64 `mapstructure:"fresh"`
}

// BaselineConfig selects the baseline report.
type BaselineConfig struct {
	Path          string `mapstructure:"path"`
	IncludeAbsent bool   `mapstructure:"includeAbsent"`
}

// WriterConfig sizes the result writer and the producer pool.
type WriterConfig struct {
	QueueCapacity int `mapstructure:"queueCapacity"`
	Workers       int `mapstructure:"workers"`
}

// QuotaConfig limits how many problems one inspection may store.
type QuotaConfig struct {
	Default     int          `mapstructure:"default"`
	Inspections []QuotaLimit `mapstructure:"inspections"`
}

// QuotaLimit is the limit of a single inspection.
type QuotaLimit struct {
	Inspection string `mapstructure:"inspection"`
	Limit      int    `mapstructure:"limit"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig configures tracing and metrics export.
type ObservabilityConfig struct {
	OTLPEndpoint    string  `mapstructure:"otlpEndpoint"`
	OTLPHeaders     string  `mapstructure:"otlpHeaders"`
	OTLPInsecure    bool    `mapstructure:"otlpInsecure"`
	SampleRatio     float64 `mapstructure:"sampleRatio"`
	MetricsTextfile string  `mapstructure:"metricsTextfile"`
}

// CoverageConfig points at the measured coverage of the run.
type CoverageConfig struct {
	File string `mapstructure:"file"`
}

// ScopeConfig restricts the files whose problems are reported.
type ScopeConfig struct {
	ChangesFile string `mapstructure:"changesFile"`
	DiffStart   string `mapstructure:"diffStart"`
}

// ReportConfig controls report files.
type ReportConfig struct {
	Compress bool `mapstructure:"compress"`
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResultsDir) == "" {
		return ErrMissingResultsDir
	}

	err := c.validateThresholds()
	if err != nil {
		return err
	}

	if c.Writer.QueueCapacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueCapacity, c.Writer.QueueCapacity)
	}

	if c.Writer.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Writer.Workers)
	}

	err = c.validateQuota()
	if err != nil {
		return err
	}

	_, err = observability.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	ratio := c.Observability.SampleRatio
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, ratio)
	}

	return nil
}

func (c *Config) validateThresholds() error {
	counts := map[string]*int{
		KeyFailThreshold: c.FailThreshold,
		KeySeverityAny:   c.FailureConditions.SeverityThresholds.Any,
	}

	for sev, v := range c.FailureConditions.SeverityThresholds.bySeverity() {
		counts[SeverityKey(sev)] = v
	}

	for _, key := range slices.Sorted(maps.Keys(counts)) {
		if v := counts[key]; v != nil && *v < 0 {
			return fmt.Errorf("%s: %w (got %d)", key, ErrNegativeThreshold, *v)
		}
	}

	coverage := []struct {
		key string
		v   *float64
	}{
		{KeyCoverageTotal, c.FailureConditions.TestCoverageThresholds.Total},
		{KeyCoverageFresh, c.FailureConditions.TestCoverageThresholds.Fresh},
	}

	for _, cov := range coverage {
		if cov.v != nil && (math.IsNaN(*cov.v) || *cov.v < 0 || *cov.v > maxCoverage) {
			return fmt.Errorf("%s: %w (got %v)", cov.key, ErrCoverageRange, *cov.v)
		}
	}

	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.Default < 0 {
		return fmt.Errorf("%s: %w: %d is negative", KeyDefaultQuota, ErrInvalidQuota, c.Quota.Default)
	}

	for i, q := range c.Quota.Inspections {
		if q.Inspection == "" {
			return fmt.Errorf("quota.inspections[%d]: %w: missing inspection", i, ErrInvalidQuota)
		}

		if q.Limit < 0 {
			return fmt.Errorf("quota.inspections[%d]: %w: %d is negative", i, ErrInvalidQuota, q.Limit)
		}
	}

	return nil
}

// SeverityKey is the config key of the count threshold for sev.
func SeverityKey(sev problem.Severity) string {
	return keySeverityPrefix + strings.ToLower(string(sev))
}

func (s SeverityThresholds) bySeverity() map[problem.Severity]*int {
	return map[problem.Severity]*int{
		problem.SeverityCritical: s.Critical,
		problem.SeverityHigh:     s.High,
		problem.SeverityModerate: s.Moderate,
		problem.SeverityLow:      s.Low,
		problem.SeverityInfo:     s.Info,
	}
}

// Thresholds converts the failure conditions for the exit-status evaluator.
// failThreshold takes precedence over severityThresholds.any.
func (c *Config) Thresholds() exitstatus.Thresholds {
	th := exitstatus.Thresholds{
		Any:           c.FailureConditions.SeverityThresholds.Any,
		TotalCoverage: c.FailureConditions.TestCoverageThresholds.Total,
		FreshCoverage: c.FailureConditions.TestCoverageThresholds.Fresh,
	}

	if c.FailThreshold != nil {
		th.Any = c.FailThreshold
	}

	for sev, v := range c.FailureConditions.SeverityThresholds.bySeverity() {
		if v == nil {
			continue
		}

		if th.Severity == nil {
			th.Severity = make(map[problem.Severity]int)
		}

		th.Severity[sev] = *v
	}

	return th.Clone()
}

// Quotas returns the per-inspection limits.
func (c *Config) Quotas() map[string]int {
	out := make(map[string]int, len(c.Quota.Inspections))
	for _, q := range c.Quota.Inspections {
		out[q.Inspection] = q.Limit
	}

	return out
}

// ObservabilityConfig builds the observability setup for a run.
func (c *Config) ObservabilityConfig(version string, mode observability.AppMode) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.OTLP = observability.OTLPConfig{
		Endpoint: c.Observability.OTLPEndpoint,
		Headers:  observability.ParseOTLPHeaders(c.Observability.OTLPHeaders),
		Insecure: c.Observability.OTLPInsecure,
	}
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.Prometheus = c.Observability.MetricsTextfile != ""
	cfg.LogJSON = c.Logging.JSON

	if level, err := observability.ParseLogLevel(c.Logging.Level); err == nil {
		cfg.LogLevel = level
	}

	return cfg
}
