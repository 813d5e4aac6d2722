package telemetry

import (
	"context"
	"net/http"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/interfaces"
	"market-screener/src/models"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const MeterName = "market-screener"

// Run outcomes used as the "outcome" attribute.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the screener instruments and the Prometheus scrape handler.
// Each instance owns its registry, so several can coexist in one process.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	runs     metric.Int64Counter
	records  metric.Int64Counter
	skipped  metric.Int64Counter
	gaps     metric.Int64Counter
	duration metric.Float64Histogram
}

// -----------------------------------------------------------------------------

func NewMetrics(serviceName string) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, errors.Wrap(err, "create prometheus exporter")
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(MeterName)

	m := &Metrics{
		provider: provider,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if m.runs, err = meter.Int64Counter("screener_runs",
		metric.WithDescription("Screening runs by mode and outcome")); err != nil {
		return nil, err
	}
	if m.records, err = meter.Int64Counter("screener_records",
		metric.WithDescription("Metric records produced")); err != nil {
		return nil, err
	}
	if m.skipped, err = meter.Int64Counter("screener_skipped_symbols",
		metric.WithDescription("Symbols skipped for missing data")); err != nil {
		return nil, err
	}
	if m.gaps, err = meter.Int64Counter("screener_batch_gaps",
		metric.WithDescription("Batches lost to provider failures or timeouts")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("screener_run_duration",
		metric.WithDescription("Wall time of a screening run"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return m, nil
}

// -----------------------------------------------------------------------------

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// -----------------------------------------------------------------------------

// RecordRun records one finished run. result may be nil when err is set.
func (m *Metrics) RecordRun(ctx context.Context, result *models.MScreenResult, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil && helpers.IsInvalidInput(err):
		outcome = OutcomeInvalid
	case err != nil:
		outcome = OutcomeError
	}

	mode := "unknown"
	if result != nil {
		mode = string(result.Plan.Mode)
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)

	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if result == nil {
		return
	}

	modeAttr := metric.WithAttributes(attribute.String("mode", mode))
	m.records.Add(ctx, int64(len(result.Records)), modeAttr)
	m.skipped.Add(ctx, int64(len(result.Skipped)), modeAttr)
	m.gaps.Add(ctx, int64(len(result.Gaps)), modeAttr)
}

// -----------------------------------------------------------------------------

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Instrumented screener
// -----------------------------------------------------------------------------

// InstrumentedScreener records every run of the wrapped screener.
type InstrumentedScreener struct {
	Next    interfaces.IScreener
	Metrics *Metrics
}

func Instrument(next interfaces.IScreener, m *Metrics) *InstrumentedScreener {
	return &InstrumentedScreener{Next: next, Metrics: m}
}

// -----------------------------------------------------------------------------

func (s *InstrumentedScreener) RunScreen(ctx context.Context, req models.MScreenRequest) (*models.MScreenResult, error) {
	started := time.Now()
	result, err := s.Next.RunScreen(ctx, req)
	s.Metrics.RecordRun(context.WithoutCancel(ctx), result, time.Since(started), err)
	return result, err
}
