// Package telemetry exports agent traces to a Phoenix collector over OTLP/HTTP.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	// EndpointEnv names the collector base URL, e.g. http://host.docker.internal:6006.
	EndpointEnv = "PHOENIX_COLLECTOR_ENDPOINT"
	// ProjectEnv names the Phoenix project spans are filed under.
	ProjectEnv = "PHOENIX_PROJECT_NAME"

	DefaultEndpoint = "http://localhost:6006"
	DefaultProject  = "default"

	tracesPath  = "/v1/traces"
	serviceName = "sandrun-agent"
	scopeName   = "github.com/ChamsBouzaiene/sandrun/internal/telemetry"
)

// Options configures Register. Empty fields fall back to the environment,
// then to the defaults.
type Options struct {
	Endpoint    string
	ProjectName string
}

// Provider owns the tracer provider installed by Register.
type Provider struct {
	tp       *sdktrace.TracerProvider
	endpoint string
	project  string
}

// TracesURL returns the OTLP/HTTP URL for a collector base endpoint. An
// endpoint that already ends in /v1/traces is kept as is.
func TracesURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, tracesPath) {
		return endpoint
	}
	return endpoint + tracesPath
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = os.Getenv(EndpointEnv)
	}
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.ProjectName == "" {
		o.ProjectName = os.Getenv(ProjectEnv)
	}
	if o.ProjectName == "" {
		o.ProjectName = DefaultProject
	}
	return o
}

// Register installs a global tracer provider that batches spans to the
// collector. Call Shutdown before exit to flush them.
func Register(ctx context.Context, opts Options) (*Provider, error) {
	opts = opts.withDefaults()
	url := TracesURL(opts.Endpoint)

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(url))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", url, err)
	}

	p := newProvider(opts, sdktrace.WithBatcher(exporter))
	p.endpoint = url
	otel.SetTracerProvider(p.tp)
	return p, nil
}

// NewProvider builds a provider around caller-supplied span processors
// without touching the global provider.
func NewProvider(opts Options, processors ...sdktrace.SpanProcessor) *Provider {
	var tpOpts []sdktrace.TracerProviderOption
	for _, sp := range processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	return newProvider(opts.withDefaults(), tpOpts...)
}

func newProvider(opts Options, tpOpts ...sdktrace.TracerProviderOption) *Provider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String(AttrProjectName, opts.ProjectName),
	)
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	return &Provider{
		tp:      sdktrace.NewTracerProvider(tpOpts...),
		project: opts.ProjectName,
	}
}

// Tracer returns the tracer agent spans are created with.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(scopeName)
}

// Endpoint returns the traces URL, or "" for providers built with NewProvider.
func (p *Provider) Endpoint() string {
	return p.endpoint
}

// Project returns the Phoenix project name.
func (p *Provider) Project() string {
	return p.project
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to flush traces: %w", err)
	}
	return nil
}
