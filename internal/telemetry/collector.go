package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	dispatchMetric = "statebox.dispatch.count"
	rejectedMetric = "statebox.mutation.rejected"
)

// Summary is a point-in-time view of the counters an Observer maintains.
type Summary struct {
	Dispatches map[string]int64 `json:"dispatches"` // by event kind
	Rejected   map[string]int64 `json:"rejected"`   // by operation
}

// Collector owns an in-process meter provider and reads its counters on
// demand. It is meant for short-lived runs that report their own numbers
// instead of exporting them.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	observer *Observer
}

// NewCollector creates a Collector with its own Observer. Spans go to the
// global tracer provider.
func NewCollector() (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := New(WithMeterProvider(provider))
	if err != nil {
		return nil, fmt.Errorf("create observer: %w", err)
	}
	return &Collector{reader: reader, provider: provider, observer: obs}, nil
}

// Observer returns the observer to pass to store.WithObserver.
func (c *Collector) Observer() *Observer {
	return c.observer
}

// Summary collects the current counter values.
func (c *Collector) Summary(ctx context.Context) (Summary, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return Summary{}, fmt.Errorf("collect metrics: %w", err)
	}

	s := Summary{
		Dispatches: map[string]int64{},
		Rejected:   map[string]int64{},
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case dispatchMetric:
				addSum(s.Dispatches, m.Data, "event.kind")
			case rejectedMetric:
				addSum(s.Rejected, m.Data, "statebox.operation")
			}
		}
	}
	return s, nil
}

// Shutdown releases the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func addSum(into map[string]int64, data metricdata.Aggregation, attr string) {
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		return
	}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(attr))
		into[v.AsString()] += dp.Value
	}
}
