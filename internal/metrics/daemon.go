package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"dirsweep/internal/disk"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks total errors encountered by the daemon
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks current free space percentage per swept target
	FreeSpacePercent *prometheus.GaugeVec

	// TargetFreeBytes tracks free space on the filesystem containing the target
	TargetFreeBytes *prometheus.GaugeVec

	// TargetTotalBytes tracks total capacity of the filesystem containing the target
	TargetTotalBytes *prometheus.GaugeVec
)

// initDaemonMetrics initializes all daemon subsystem metrics
func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"dirsweep_daemon_errors_total",
		"Total number of errors encountered by dirsweep.",
	)

	FreeSpacePercent = NewGaugeVec(
		"dirsweep_daemon_free_space_percent",
		"Current free space percentage for swept targets.",
		[]string{"target"},
	)

	TargetFreeBytes = NewGaugeVec(
		"dirsweep_target_free_bytes",
		"Free space available on the filesystem containing this target.",
		[]string{"target"},
	)

	TargetTotalBytes = NewGaugeVec(
		"dirsweep_target_total_bytes",
		"Total capacity of the filesystem containing this target.",
		[]string{"target"},
	)
}

// registerDaemonMetrics registers all daemon metrics with Prometheus
func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(TargetFreeBytes)
	prometheus.MustRegister(TargetTotalBytes)
}

// UpdateTargetDiskMetrics updates all disk-related gauges for a target.
// Pass stats from disk.GetStats() to populate the gauges atomically.
func UpdateTargetDiskMetrics(target string, stats *disk.Stats) {
	freePercent := 100.0
	if stats.TotalBytes > 0 {
		freePercent = (float64(stats.FreeBytes) / float64(stats.TotalBytes)) * 100.0
	}
	FreeSpacePercent.WithLabelValues(target).Set(freePercent)
	TargetFreeBytes.WithLabelValues(target).Set(float64(stats.FreeBytes))
	TargetTotalBytes.WithLabelValues(target).Set(float64(stats.TotalBytes))
}
