package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep subsystem metrics
var (
	// DirsPrunedTotal tracks empty directories removed in prune-empty mode
	DirsPrunedTotal prometheus.Counter

	// EntriesPurgedTotal tracks entries removed in purge-contents mode
	EntriesPurgedTotal prometheus.Counter

	// BytesFreedTotal tracks total bytes freed across all sweeps
	BytesFreedTotal prometheus.Counter

	// SweepDuration tracks how long sweep cycles take
	SweepDuration prometheus.Histogram

	// SweepLastRunTimestamp records Unix timestamp of the last sweep cycle
	SweepLastRunTimestamp prometheus.Gauge

	// TargetBytesFreedTotal tracks bytes freed per configured target
	TargetBytesFreedTotal *prometheus.CounterVec
)

// initSweepMetrics initializes all sweep subsystem metrics
func initSweepMetrics() {
	DirsPrunedTotal = NewCounter(
		"dirsweep_dirs_pruned_total",
		"Total number of empty directories removed.",
	)

	EntriesPurgedTotal = NewCounter(
		"dirsweep_entries_purged_total",
		"Total number of entries removed in purge-contents mode.",
	)

	BytesFreedTotal = NewCounter(
		"dirsweep_bytes_freed_total",
		"Total bytes freed by dirsweep.",
	)

	SweepDuration = NewDurationHistogram(
		"dirsweep_sweep_duration_seconds",
		"Duration of sweep cycles in seconds.",
	)

	SweepLastRunTimestamp = NewGauge(
		"dirsweep_sweep_last_run_timestamp",
		"Timestamp of the last sweep cycle (Unix epoch seconds).",
	)

	TargetBytesFreedTotal = NewCounterVec(
		"dirsweep_target_bytes_freed_total",
		"Total bytes freed per configured target.",
		[]string{"target"},
	)
}

// registerSweepMetrics registers all sweep metrics with Prometheus
func registerSweepMetrics() {
	prometheus.MustRegister(DirsPrunedTotal)
	prometheus.MustRegister(EntriesPurgedTotal)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(SweepLastRunTimestamp)
	prometheus.MustRegister(TargetBytesFreedTotal)
}

// RecordSweepRun updates the last run timestamp to current time
func RecordSweepRun() {
	SweepLastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordTargetFreed records bytes freed for a specific target
func RecordTargetFreed(target string, bytes int64) {
	TargetBytesFreedTotal.WithLabelValues(target).Add(float64(bytes))
}
