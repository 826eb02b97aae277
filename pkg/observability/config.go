package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command execution.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName     = "qodana"
	defaultShutdownTimeout = 5
)

// OTLPConfig addresses an OTLP gRPC collector. An empty Endpoint disables export.
type OTLPConfig struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Environment is the deployment environment, e.g. "ci".
	Environment string
	Mode        AppMode

	OTLP OTLPConfig

	// SampleRatio is the trace sampling ratio in [0, 1]. Zero samples every
	// root span. OTEL_TRACES_SAMPLER overrides it.
	SampleRatio float64

	// Prometheus attaches a registry to the meter provider so metrics can be
	// dumped with [Providers.WriteTextfile].
	Prometheus bool

	LogLevel slog.Level
	LogJSON  bool
	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// ShutdownTimeoutSec bounds the final flush.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeout,
	}
}
