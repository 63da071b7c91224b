package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names and describes a metric. Buckets only apply to histograms.
type Instrument struct {
	Name        string
	Description string
	Unit        string
	Buckets     []float64
}

func (i Instrument) wrapErr(kind string, err error) error {
	return fmt.Errorf("failed to create %s %s: %w", kind, i.Name, err)
}

// Counter is a monotonic int64 counter. A nil *Counter discards values.
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a Counter on meter
func NewCounter(meter metric.Meter, inst Instrument) (*Counter, error) {
	c, err := meter.Int64Counter(inst.Name, metric.WithDescription(inst.Description), metric.WithUnit(inst.Unit))
	if err != nil {
		return nil, inst.wrapErr("counter", err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// UpDownCounter tracks an in-flight quantity
type UpDownCounter struct {
	counter metric.Int64UpDownCounter
}

// NewUpDownCounter creates an UpDownCounter on meter
func NewUpDownCounter(meter metric.Meter, inst Instrument) (*UpDownCounter, error) {
	c, err := meter.Int64UpDownCounter(inst.Name, metric.WithDescription(inst.Description), metric.WithUnit(inst.Unit))
	if err != nil {
		return nil, inst.wrapErr("up-down counter", err)
	}
	return &UpDownCounter{counter: c}, nil
}

// Track increments the counter and returns the matching decrement
func (u *UpDownCounter) Track(ctx context.Context, attrs ...attribute.KeyValue) func() {
	if u == nil {
		return func() {}
	}
	opt := metric.WithAttributes(attrs...)
	u.counter.Add(ctx, 1, opt)
	return func() { u.counter.Add(ctx, -1, opt) }
}

// Histogram is a float64 distribution. A nil *Histogram discards values.
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a Histogram on meter with inst.Buckets as explicit
// boundaries when set
func NewHistogram(meter metric.Meter, inst Instrument) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(inst.Description),
		metric.WithUnit(inst.Unit),
	}
	if len(inst.Buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(inst.Buckets...))
	}
	h, err := meter.Float64Histogram(inst.Name, opts...)
	if err != nil {
		return nil, inst.wrapErr("histogram", err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records value
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	if h == nil {
		return
	}
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge is a synchronous int64 gauge
type Gauge struct {
	gauge metric.Int64Gauge
}

// NewGauge creates a Gauge on meter
func NewGauge(meter metric.Meter, inst Instrument) (*Gauge, error) {
	g, err := meter.Int64Gauge(inst.Name, metric.WithDescription(inst.Description), metric.WithUnit(inst.Unit))
	if err != nil {
		return nil, inst.wrapErr("gauge", err)
	}
	return &Gauge{gauge: g}, nil
}

// Record sets the current value
func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if g == nil {
		return
	}
	g.gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Metric attribute keys.
var (
	AttrCompanyID = attribute.Key("company_id")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")

	AttrProvider          = attribute.Key("provider")
	AttrEntity            = attribute.Key("entity")
	AttrOperation         = attribute.Key("operation")
	AttrOutcome           = attribute.Key("outcome")
	AttrSyncStatus        = attribute.Key("sync_status")
	AttrIntegrationStatus = attribute.Key("integration_status")
)

// Histogram bucket boundaries in seconds.
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)
