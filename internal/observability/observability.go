// Package observability wires the process-wide slog logger.
//
// The text and json formats log straight to stderr. The otel format bridges
// slog into an OpenTelemetry log pipeline: records go to an OTLP endpoint
// when the standard OTEL_EXPORTER_OTLP_* environment variables are set, to
// stdout otherwise.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "github.com/jrg94/fitbit-backup"

// provider is non-nil while an OTel pipeline is active; Flush drains it.
var provider *sdklog.LoggerProvider

// Instrument installs the default slog logger for the given minimum level
// and format (text, json or otel).
func Instrument(level slog.Level, format string) error {
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case "otel":
		exporter, err := newExporter(context.Background())
		if err != nil {
			return fmt.Errorf("creating log exporter: %w", err)
		}
		processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
		provider = sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
		slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
	return nil
}

// Flush drains and shuts down the OTel pipeline, if one is active. Call
// before process exit so buffered records are not lost.
func Flush(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// newExporter picks the destination by environment: OTLP (grpc or
// http/protobuf per OTEL_EXPORTER_OTLP_PROTOCOL) when an endpoint is
// configured, stdout otherwise.
func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") == "" {
		return stdoutlog.New()
	}

	protocol := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL")
	if protocol == "" {
		protocol = os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	}
	if protocol == "grpc" {
		return otlploggrpc.New(ctx)
	}
	return otlploghttp.New(ctx)
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
