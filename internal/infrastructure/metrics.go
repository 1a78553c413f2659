package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"factorlens/pkg/contracts"
)

const (
	// ServiceName identifies this service in telemetry resources
	ServiceName = "factorlens"
	// MeterName is the instrumentation scope for application metrics
	MeterName = "factorlens"
)

// Metrics bundles the OpenTelemetry meter provider, the Prometheus handler
// backing /metrics, and the application instruments.
type Metrics struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler
	Meter    metric.Meter

	RegressionRuns    metric.Int64Counter
	RegressionErrors  metric.Int64Counter
	WindowsFit        metric.Int64Counter
	WindowsSkipped    metric.Int64Counter
	RunDuration       metric.Float64Histogram
	FactorDownloads   metric.Int64Counter
	PriceFetches      metric.Int64Counter
}

// NewMetrics wires an OTel meter provider to a dedicated Prometheus
// registry and creates the application instruments.
func NewMetrics(logger *slog.Logger) (*Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(contracts.Version),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(MeterName)
	m := &Metrics{
		Provider: provider,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Meter:    meter,
	}

	if m.RegressionRuns, err = meter.Int64Counter("regression_runs_total",
		metric.WithDescription("Completed rolling regression runs")); err != nil {
		return nil, err
	}
	if m.RegressionErrors, err = meter.Int64Counter("regression_errors_total",
		metric.WithDescription("Failed rolling regression runs")); err != nil {
		return nil, err
	}
	if m.WindowsFit, err = meter.Int64Counter("regression_windows_fit_total",
		metric.WithDescription("Windows fit across all runs")); err != nil {
		return nil, err
	}
	if m.WindowsSkipped, err = meter.Int64Counter("regression_windows_skipped_total",
		metric.WithDescription("Windows skipped as singular across all runs")); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram("regression_run_duration_seconds",
		metric.WithDescription("End-to-end duration of a regression run"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.FactorDownloads, err = meter.Int64Counter("factor_downloads_total",
		metric.WithDescription("Factor archive downloads")); err != nil {
		return nil, err
	}
	if m.PriceFetches, err = meter.Int64Counter("price_fetches_total",
		metric.WithDescription("Price history fetches")); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("metrics initialized", slog.String("meter", MeterName))
	}
	return m, nil
}

// Shutdown flushes and stops the meter provider
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.Provider == nil {
		return nil
	}
	return m.Provider.Shutdown(ctx)
}
