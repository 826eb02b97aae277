// Package mcp implements a Model Context Protocol server exposing the
// problems of a finished run as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/qodana/pkg/observability"
)

const (
	serverName     = "qodana"
	stagePrefix    = "mcp."
	traceIDContent = "trace_id="
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value optional fields disable the matching feature.
type ServerDeps struct {
	// StorePath is the result store file of a finished run.
	StorePath string
	Version   string

	Logger  *slog.Logger
	Metrics *observability.RunMetrics
	Tracer  trace.Tracer
}

// Server serves the qodana tools over one store.
type Server struct {
	inner     *mcpsdk.Server
	storePath string
	logger    *slog.Logger
	metrics   *observability.RunMetrics
	tracer    trace.Tracer
	tools     []string
}

// NewServer creates a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	s := &Server{
		storePath: deps.StorePath,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
	}

	if s.logger == nil {
		s.logger = observability.NopLogger()
	}

	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer(serverName)
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s.inner = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: serverName, Version: version},
		&mcpsdk.ServerOptions{Logger: s.logger},
	)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameProblems, Description: problemsToolDescription},
		instrument(s, ToolNameProblems, s.handleProblems))
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameSummary, Description: summaryToolDescription},
		instrument(s, ToolNameSummary, s.handleSummary))

	s.tools = []string{ToolNameProblems, ToolNameSummary}
	slices.Sort(s.tools)

	return s
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	return slices.Clone(s.tools)
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	s.logger.InfoContext(ctx, "mcp server started", "store", s.storePath)

	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// instrument runs each call as an "mcp.<tool>" stage. A call is failed when
// the handler errs or returns an error result. Sampled calls get the trace
// id appended to the result content.
func instrument[Input any](
	s *Server,
	tool string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, end := s.metrics.Stage(ctx, s.tracer, stagePrefix+tool)

		result, out, err := handler(ctx, req, in)

		stageErr := err
		if stageErr == nil && result != nil && result.IsError {
			stageErr = errToolFailed
		}

		end(&stageErr)

		if sc := trace.SpanContextFromContext(ctx); sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{Text: traceIDContent + sc.TraceID().String()})
		}

		if stageErr != nil {
			s.logger.WarnContext(ctx, "mcp tool failed", "tool", tool, "error", stageErr)
		}

		return result, out, err
	}
}

const (
	problemsToolDescription = "List problems found by the last Qodana run. " +
		"Filters by inspection group, inspection id and severity."

	summaryToolDescription = "Count problems of the last Qodana run per inspection and severity, " +
		"and evaluate the exit status for the given failure thresholds."
)
