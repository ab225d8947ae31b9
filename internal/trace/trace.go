package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "advisory-trading-bot"

// Version is stamped into the trace resource; overridden at build time via -ldflags.
var Version = "dev"

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
)

// Config selects how spans are exported.
type Config struct {
	Enabled bool
	// SampleRatio is the fraction of root spans (ticks) kept. Values outside
	// (0,1) keep everything.
	SampleRatio float64
	// Pretty indents the exported JSON; useful on a terminal, noisy in log shipping.
	Pretty bool
}

// Setup installs the global tracer provider. A second call is a no-op while a
// provider is installed.
func Setup(cfg Config) error {
	enabled = cfg.Enabled
	if !enabled || provider != nil {
		return nil
	}

	var exportOpts []stdouttrace.Option
	if cfg.Pretty {
		exportOpts = append(exportOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exportOpts...)
	if err != nil {
		enabled = false
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		enabled = false
		return err
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		// Child spans (market, advisor) follow their tick's decision.
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(provider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans and removes the provider.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	provider = nil
	tracer = nil
	enabled = false
	return err
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

// InstrumentAttrs tags a span with the traded instrument.
func InstrumentAttrs(symbol, mode string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("bot.symbol", symbol),
		attribute.String("bot.mode", mode),
	)
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
