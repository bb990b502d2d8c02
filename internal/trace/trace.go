// Package trace exports the client's spans to an OTLP/HTTP collector.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "ampsession"

// Config holds tracing configuration. Tracing is off when Endpoint is
// empty.
type Config struct {
	// Endpoint is host:port, or an http(s) URL whose scheme decides
	// TLS and whose path is used when URLPath is empty.
	Endpoint string
	URLPath  string
	// APIKey is sent as a Bearer token.
	APIKey string
	// Secure selects TLS for a bare host:port endpoint.
	Secure bool
}

type target struct {
	host   string
	path   string
	secure bool
}

func resolve(cfg Config) (target, error) {
	t := target{host: cfg.Endpoint, path: cfg.URLPath, secure: cfg.Secure}
	if !strings.Contains(cfg.Endpoint, "://") {
		return t, nil
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return target{}, fmt.Errorf("trace endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		t.secure = true
	case "http":
		t.secure = false
	default:
		return target{}, fmt.Errorf("trace endpoint: unsupported scheme %q", u.Scheme)
	}
	t.host = u.Host
	if t.path == "" && u.Path != "" && u.Path != "/" {
		t.path = u.Path
	}
	return t, nil
}

func (t target) options(apiKey string) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.host)}
	if !t.secure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if t.path != "" {
		opts = append(opts, otlptracehttp.WithURLPath(t.path))
	}
	if apiKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + apiKey,
		}))
	}
	return opts
}

// Init installs the global tracer provider. The returned shutdown
// flushes batched spans and must be called before exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		slog.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	t, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey != "" && !t.secure {
		slog.Warn("trace api key is sent without TLS", "endpoint", t.host)
	}

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		slog.Error("otel error", "error", err)
	}))

	inner, err := otlptracehttp.New(ctx, t.options(cfg.APIKey)...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(&loggingExporter{inner: inner}),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	slog.Debug("tracing enabled", "endpoint", t.host, "url_path", t.path, "secure", t.secure)
	return tp.Shutdown, nil
}

// loggingExporter reports each export batch.
type loggingExporter struct {
	inner sdktrace.SpanExporter
}

func (e *loggingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if err := e.inner.ExportSpans(ctx, spans); err != nil {
		slog.Warn("otlp export failed", "spans", len(spans), "error", err)
		return err
	}
	slog.Debug("otlp exported", "spans", len(spans))
	return nil
}

func (e *loggingExporter) Shutdown(ctx context.Context) error {
	return e.inner.Shutdown(ctx)
}

// Tracer returns the ampsession tracer. Until Init runs it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(serviceName)
}
