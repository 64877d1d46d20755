package infra

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vidlingo/dub-orchestrator/config"
)

// LoggerClient wraps slog with the OTLP bridge so every log line carries
// trace context when one is present. It also owns the shared trace and
// metric providers for the process.
type LoggerClient struct {
	logger    *slog.Logger
	shutdowns []func(context.Context) error
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	ctx := context.Background()

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.Grafana.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment.Mode),
		),
	)
	if err != nil {
		log.Printf("Warning: failed to build telemetry resource: %v", err)
		return &LoggerClient{logger: slog.New(slog.NewTextHandler(os.Stdout, nil))}
	}

	insecure := cfg.Environment.Mode == "development"

	logOpts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlploghttp.WithURLPath("/otlp/v1/logs"),
	}
	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlptracehttp.WithURLPath("/otlp/v1/traces"),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlpmetrichttp.WithURLPath("/otlp/v1/metrics"),
	}
	if insecure {
		logOpts = append(logOpts, otlploghttp.WithInsecure())
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	client := &LoggerClient{}

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		log.Printf("Warning: failed to initialize OTLP log exporter: %v (falling back to stdout)", err)
		client.logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
		return client
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)
	client.shutdowns = append(client.shutdowns, loggerProvider.Shutdown)

	var traceExporter *otlptrace.Exporter
	traceExporter, err = otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		log.Printf("Warning: failed to initialize OTLP trace exporter: %v", err)
	} else {
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		client.shutdowns = append(client.shutdowns, tracerProvider.Shutdown)
	}

	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		log.Printf("Warning: failed to initialize OTLP metric exporter: %v", err)
	} else {
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(meterProvider)
		client.shutdowns = append(client.shutdowns, meterProvider.Shutdown)

		if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
			log.Printf("Warning: failed to start runtime instrumentation: %v", err)
		}
	}

	client.logger = slog.New(otelslog.NewHandler(cfg.Grafana.ServiceName, otelslog.WithLoggerProvider(loggerProvider)))
	return client
}

// NewTestLoggerClient returns a logger that discards output, for tests.
func NewTestLoggerClient() *LoggerClient {
	return &LoggerClient{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{}) {
	if err != nil {
		l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...), slog.Any("error", err))
		return
	}
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) Shutdown(ctx context.Context) {
	for _, shutdown := range l.shutdowns {
		if err := shutdown(ctx); err != nil {
			log.Printf("Warning: telemetry shutdown error: %v", err)
		}
	}
}
