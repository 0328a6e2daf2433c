package buffer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BufStats counts pool activity since construction or the last ClearStats.
type BufStats struct {
	Accesses   uint64 // FetchPage calls
	Hits       uint64 // FetchPage calls served without I/O
	DiskReads  uint64
	DiskWrites uint64 // write-backs, eviction and flush alike
	Evictions  uint64
}

// poolMetrics mirrors BufStats as otel counters.
type poolMetrics struct {
	hits       metric.Int64Counter
	misses     metric.Int64Counter
	evictions  metric.Int64Counter
	writebacks metric.Int64Counter
	ioErrors   metric.Int64Counter
	attrs      metric.MeasurementOption
}

func newPoolMetrics(meter metric.Meter, replacer string) (*poolMetrics, error) {
	hits, err := meter.Int64Counter(
		"clockpool.buffer.hits",
		metric.WithDescription("Fetches served from a resident frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"clockpool.buffer.misses",
		metric.WithDescription("Fetches that had to read the page file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"clockpool.buffer.evictions",
		metric.WithDescription("Valid frames reclaimed by the replacer."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	writebacks, err := meter.Int64Counter(
		"clockpool.buffer.writebacks",
		metric.WithDescription("Dirty pages written to the page file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	ioErrors, err := meter.Int64Counter(
		"clockpool.buffer.io_errors",
		metric.WithDescription("Operations failed by the page file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &poolMetrics{
		hits:       hits,
		misses:     misses,
		evictions:  evictions,
		writebacks: writebacks,
		ioErrors:   ioErrors,
		attrs:      metric.WithAttributes(attribute.String("replacer", replacer)),
	}, nil
}

func (m *poolMetrics) add(c metric.Int64Counter) {
	c.Add(context.Background(), 1, m.attrs)
}
