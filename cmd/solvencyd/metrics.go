// metrics.go - Metrics collection for the solvency prover
package main

import (
	"fmt"
	"sync"
	"time"
)

// Metric represents a single recorded measurement
type Metric struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// MetricsCollector accumulates counters and phase durations for one run
type MetricsCollector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	durations map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]int64),
		durations: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

// RecordDuration records one phase duration
func (mc *MetricsCollector) RecordDuration(name string, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.durations[name] = append(mc.durations[name], d.Seconds())
}

// Timed runs fn and records its wall time under name
func (mc *MetricsCollector) Timed(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	mc.RecordDuration(name, time.Since(start))
	if err != nil {
		mc.IncrementCounter(MetricErrorCount)
	}
	return err
}

// Summary returns per-phase counts, totals and averages
func (mc *MetricsCollector) Summary() map[string]string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]string)
	for name, count := range mc.counters {
		summary[name] = fmt.Sprintf("%d", count)
	}
	for name, values := range mc.durations {
		var sum float64
		for _, v := range values {
			sum += v
		}
		summary[name] = fmt.Sprintf("n=%d total=%.3fs avg=%.3fs", len(values), sum, sum/float64(len(values)))
	}
	return summary
}

// Predefined metric names
const (
	MetricSetupTime           = "srs_setup_time"
	MetricCircuitCompileTime  = "circuit_compile_time"
	MetricCommitTime          = "column_commit_time"
	MetricProofGenerationTime = "proof_generation_time"
	MetricOpeningTime         = "opening_time"
	MetricHVectorTime         = "h_vector_time"
	MetricEntriesParsed       = "entries_parsed"
	MetricErrorCount          = "error_count"
)
