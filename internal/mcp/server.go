package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultRequestTimeout = 5 * time.Second

// CallRecorder counts handled requests. metrics.Recorder satisfies it.
type CallRecorder interface {
	MCPCall(operation, outcome string)
}

type ServerConfig struct {
	RequestTimeout time.Duration
	Calls          CallRecorder
}

func NewServer(tracer trace.Tracer, svc Services, cfg ServerConfig) *sdkmcp.Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "strategy-desk-mcp",
		Version: "1.0.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "Read prices, fused signal scores for a symbol and horizon, and classify trade intents before execution.",
		Logger:       slog.Default(),
	})

	srv.AddReceivingMiddleware(instrument(tracer, cfg))

	registerTools(srv, svc)
	registerResources(srv, svc)
	return srv
}

func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	base := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return wrapHTTPHandler(base, cfg)
}

// instrument bounds every request by the timeout and, when configured, wraps
// it in a span and counts its outcome.
func instrument(tracer trace.Tracer, cfg ServerConfig) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			op := operationName(method, req)
			var span trace.Span
			if tracer != nil {
				ctx, span = tracer.Start(ctx, op)
				defer span.End()
				span.SetAttributes(requestAttributes(method, req)...)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			outcome := callOutcome(result, err)
			if span != nil && err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			if cfg.Calls != nil {
				cfg.Calls.MCPCall(op, outcome)
			}
			if outcome != "ok" {
				log.Debug().Err(err).Str("operation", op).Str("outcome", outcome).Dur("took", time.Since(start)).Msg("mcp request did not succeed")
			}
			return result, err
		}
	}
}

func requestAttributes(method string, req sdkmcp.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("mcp.method", method)}
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		attrs = append(attrs, attribute.String("mcp.tool", strings.TrimSpace(r.Params.Name)))
	case *sdkmcp.ReadResourceRequest:
		attrs = append(attrs, attribute.String("mcp.resource.uri", strings.TrimSpace(r.Params.URI)))
	}
	return attrs
}

// callOutcome is "error" for protocol failures, "tool_error" for tool results
// flagged as errors and "ok" otherwise.
func callOutcome(result sdkmcp.Result, err error) string {
	if err != nil {
		return "error"
	}
	if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil && res.IsError {
		return "tool_error"
	}
	return "ok"
}

func operationName(method string, req sdkmcp.Request) string {
	switch method {
	case "tools/call":
		if callReq, ok := req.(*sdkmcp.CallToolRequest); ok {
			if name := strings.TrimSpace(callReq.Params.Name); name != "" {
				return "mcp.tool." + name
			}
		}
		return "mcp.tool.call"
	case "resources/read":
		if readReq, ok := req.(*sdkmcp.ReadResourceRequest); ok {
			if scheme, _, found := strings.Cut(readReq.Params.URI, "://"); found && scheme != "" {
				return "mcp.resource." + scheme
			}
		}
		return "mcp.resource.read"
	default:
		return "mcp." + strings.ReplaceAll(method, "/", ".")
	}
}
