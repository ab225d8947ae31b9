package logger

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"advisory-trading-bot/internal/trace"
)

var (
	// Global sugared logger. Starts as a no-op so packages can log before Init (and in tests).
	globalLogger = zap.NewNop().Sugar()
	// Whether detailed (debug + caller) logging is enabled
	detailedLogging bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or console
	DetailedLogging bool   // Enable detailed logs
	TracingEnabled  bool   // Enable OpenTelemetry tracing
	TraceSample     float64
	TracePretty     bool
}

// Init initializes the global logger and tracer based on environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
		TracingEnabled:  getEnvOrDefault("LOG_TRACING_ENABLED", "true") == "true",
		TraceSample:     parseRatio(os.Getenv("LOG_TRACE_SAMPLE_RATIO")),
		TracePretty:     getEnvOrDefault("LOG_TRACE_PRETTY", "false") == "true",
	}
}

// InitWithConfig initializes the logger and tracer with specific configuration
func InitWithConfig(config LogConfig) error {
	detailedLogging = config.DetailedLogging

	var zc zap.Config
	if strings.EqualFold(config.Format, "json") {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(parseLogLevel(config.Level))
	if detailedLogging {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.DisableStacktrace = !detailedLogging
	zc.OutputPaths = []string{"stdout"}

	// Callers go through Info/Debug/... and logWithTrace, so skip both frames.
	z, err := zc.Build(zap.WithCaller(detailedLogging), zap.AddCallerSkip(2))
	if err != nil {
		return err
	}
	globalLogger = z.Sugar()

	err = trace.Setup(trace.Config{
		Enabled:     config.TracingEnabled,
		SampleRatio: config.TraceSample,
		Pretty:      config.TracePretty,
	})
	if err != nil {
		globalLogger.Warnw("Failed to initialize OpenTelemetry tracer, tracing disabled", "error", err)
	}

	return nil
}

// Shutdown flushes buffered log entries and shuts down the tracer provider
func Shutdown(ctx context.Context) error {
	_ = globalLogger.Sync()
	return trace.Shutdown(ctx)
}

// parseLogLevel converts string log level to a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// parseRatio reads a sampling ratio; anything unparsable means "sample everything".
func parseRatio(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 1
	}
	return f
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// StartSpan starts a new OpenTelemetry span
func StartSpan(ctx context.Context, spanName string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	return trace.StartSpan(ctx, spanName, opts...)
}

// getTraceAttrs extracts trace ID and span ID from context for logging
func getTraceAttrs(ctx context.Context) []any {
	traceID, spanID, ok := trace.GetTraceFields(ctx)
	if !ok {
		return nil
	}
	return []any{"trace_id", traceID, "span_id", spanID}
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, zapcore.DebugLevel, msg, 0, args...)
}

// DebugSkip logs a debug message attributed to a caller further up the stack.
// Used by observability wrappers so the source points at the wrapped call site.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, zapcore.DebugLevel, msg, skip, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.InfoLevel, msg, 0, args...)
}

// InfoSkip logs an info message attributed to a caller further up the stack
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, zapcore.InfoLevel, msg, skip, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.WarnLevel, msg, 0, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.ErrorLevel, msg, 0, args...)
}

// ErrorWithErr logs an error message with an error object
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, zapcore.ErrorLevel, msg, 0, append([]any{"error", err}, args...)...)
}

// ErrorWithErrSkip is ErrorWithErr attributed to a caller further up the stack
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, zapcore.ErrorLevel, msg, skip, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil || !trace.Enabled() {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logWithTrace logs a message with trace ID and span ID if available.
// skip is the number of extra frames between the public helper and the real caller.
func logWithTrace(ctx context.Context, level zapcore.Level, msg string, skip int, args ...any) {
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	l := globalLogger
	if skip > 0 {
		l = l.WithOptions(zap.AddCallerSkip(skip))
	}

	switch level {
	case zapcore.DebugLevel:
		l.Debugw(msg, args...)
	case zapcore.WarnLevel:
		l.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		l.Errorw(msg, args...)
	default:
		l.Infow(msg, args...)
	}
}

// OperationTimer helps measure operation duration with OpenTelemetry spans
type OperationTimer struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation with an OpenTelemetry span
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	var span oteltrace.Span
	if trace.Enabled() {
		ctx, span = StartSpan(ctx, operation)
		span.SetAttributes(toAttributes(fields)...)
	}

	Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: fields,
	}
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)

	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		ot.span.SetAttributes(toAttributes(additionalFields)...)
		ot.span.SetStatus(codes.Ok, "completed")
		ot.span.End()
	}

	if detailedLogging {
		fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
		fields = append(fields, additionalFields...)
		Debug(ot.ctx, "Operation completed", fields...)
	}
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		ot.span.RecordError(err)
		ot.span.SetStatus(codes.Error, err.Error())
		ot.span.End()
	}

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds(), "error", err)
	fields = append(fields, additionalFields...)
	Error(ot.ctx, "Operation failed", fields...)
}

// GetContext returns the context with the span
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}

func addSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if !trace.Enabled() {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, oteltrace.WithAttributes(attrs...))
	}
}

// Decision logs a trading decision (always logged regardless of level)
func Decision(ctx context.Context, action string, strength float64, reason string, fields ...any) {
	addSpanEvent(ctx, "trading_decision",
		attribute.String("action", action),
		attribute.Float64("strength", strength),
		attribute.String("reason", reason),
	)

	allFields := append([]any{
		"type", "DECISION",
		"action", action,
		"strength", strength,
		"reason", reason,
	}, fields...)
	logWithTrace(ctx, zapcore.InfoLevel, "Trading decision made", 0, allFields...)
}

// Trade logs a trade execution (always logged regardless of level)
func Trade(ctx context.Context, side string, size, price float64, tradeID string, fields ...any) {
	addSpanEvent(ctx, "trade_executed",
		attribute.String("side", side),
		attribute.Float64("size", size),
		attribute.Float64("price", price),
		attribute.String("trade_id", tradeID),
	)

	allFields := append([]any{
		"type", "TRADE",
		"side", side,
		"size", size,
		"price", price,
		"trade_id", tradeID,
	}, fields...)
	logWithTrace(ctx, zapcore.InfoLevel, "Trade executed", 0, allFields...)
}

// Risk logs a risk management event
func Risk(ctx context.Context, eventType string, fields ...any) {
	addSpanEvent(ctx, "risk_event", attribute.String("event_type", eventType))

	allFields := append([]any{
		"type", "RISK",
		"event_type", eventType,
	}, fields...)
	logWithTrace(ctx, zapcore.WarnLevel, "Risk event", 0, allFields...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return detailedLogging
}

// IsTracingEnabled returns whether tracing is enabled
func IsTracingEnabled() bool {
	return trace.Enabled()
}
