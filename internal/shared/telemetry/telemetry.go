// Package telemetry installs the process-wide OpenTelemetry tracer provider
// and W3C propagators.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName string
	// OTLPEndpoint, when set, ships spans to an OTLP/gRPC collector.
	OTLPEndpoint string
	// Debug also prints every finished span to Writer (stdout when nil).
	Debug  bool
	Writer io.Writer
}

// Init registers a tracer provider and propagators globally. The returned
// shutdown flushes pending spans and must be called on exit.
func Init(ctx context.Context, cfg Config, logger *log.Logger) (shutdown func(context.Context) error, err error) {
	if logger == nil {
		logger = log.Default()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	var exporters []string

	if cfg.OTLPEndpoint != "" {
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpointURL(cfg.OTLPEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		exporters = append(exporters, "otlp="+cfg.OTLPEndpoint)
	}
	if cfg.Debug {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exp))
		exporters = append(exporters, "stdout")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if len(exporters) == 0 {
		exporters = append(exporters, "none")
	}
	logger.Printf("tracing initialized (service=%s, exporters=%s)", cfg.ServiceName, strings.Join(exporters, ","))
	return tp.Shutdown, nil
}

// endpointURL accepts both "host:4317" and "http://host:4317" forms of
// OTEL_EXPORTER_OTLP_ENDPOINT.
func endpointURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "http://" + endpoint
}
