package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records process resource usage at the end of a run
type SystemMetrics struct {
	goRoutines    metric.Int64Gauge
	heapAllocated metric.Int64Gauge
	memorySystem  metric.Int64Gauge
	gcCount       metric.Int64Gauge
	processUptime metric.Float64Gauge
}

// SystemStats is a point-in-time snapshot of the runtime
type SystemStats struct {
	GoRoutines    int64
	HeapAllocated uint64
	MemorySystem  uint64
	GCCount       uint32
	Uptime        time.Duration
}

// NewSystemMetrics creates the runtime gauges on meter
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAllocated, err := meter.Int64Gauge(
		"system_heap_allocated",
		metric.WithDescription("Heap bytes allocated by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64Gauge(
		"system_memory",
		metric.WithDescription("Bytes obtained from the OS by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"system_gc_cycles",
		metric.WithDescription("Completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"system_uptime",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:    goRoutines,
		heapAllocated: heapAllocated,
		memorySystem:  memorySystem,
		gcCount:       gcCount,
		processUptime: processUptime,
	}, nil
}

// Collect reads the runtime statistics and records them on the gauges
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAllocated: memStats.HeapAlloc,
		MemorySystem:  memStats.Sys,
		GCCount:       memStats.NumGC,
		Uptime:        time.Since(startTime),
	}

	sm.goRoutines.Record(ctx, stats.GoRoutines)
	sm.heapAllocated.Record(ctx, int64(stats.HeapAllocated))
	sm.memorySystem.Record(ctx, int64(stats.MemorySystem))
	sm.gcCount.Record(ctx, int64(stats.GCCount))
	sm.processUptime.Record(ctx, stats.Uptime.Seconds())

	return stats
}
