package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"dirsweep/internal/audit"
	"dirsweep/internal/config"
	"dirsweep/internal/database"
	"dirsweep/internal/disk"
	"dirsweep/internal/limiter"
	"dirsweep/internal/metrics"
	"dirsweep/internal/safety"
	"dirsweep/internal/sweep"
)

// RunOnce executes a single sweep cycle over every configured target
func RunOnce(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger) error {
	return RunOnceWithDeps(ctx, cfg, dryRun, logger, nil, nil)
}

// RunOnceWithDeps executes a single sweep cycle with history database and
// audit sink attached; either may be nil
func RunOnceWithDeps(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger, db *database.SweepDB, sink audit.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var cpuLimiter *limiter.CPULimiter
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpuLimiter = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}

	start := time.Now()
	metrics.RecordSweepRun()
	updateFreeSpaceMetrics(cfg, logger)

	validator := safety.NewValidator(cfg.TargetPaths(), cfg.DenyList)
	sweeper := sweep.NewSweeper(logger, sink, dryRun, db)
	sweeper.SetValidator(validator)

	staleTimeout := time.Duration(cfg.StaleMountTimeout) * time.Second

	var total sweep.Result
	var sweepErrs []error

	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if cpuLimiter != nil {
			cpuLimiter.Throttle()
		}

		if staleTimeout > 0 && disk.IsStaleMount(target.Path, staleTimeout) {
			logger.Printf("skipping %s: stale or hung mount", target.Path)
			metrics.ErrorsTotal.Inc()
			continue
		}

		mode, err := sweep.ParseMode(target.Mode)
		if err != nil {
			sweepErrs = append(sweepErrs, err)
			continue
		}

		res := sweeper.Run(sweep.Request{Target: target.Path, Mode: mode})
		total.DirsRemoved += res.DirsRemoved
		total.EntriesRemoved += res.EntriesRemoved
		total.BytesFreed += res.BytesFreed
		total.Errors = append(total.Errors, res.Errors...)
		if err := res.Err(); err != nil {
			sweepErrs = append(sweepErrs, err)
		}
	}

	elapsed := time.Since(start)
	metrics.SweepDuration.Observe(elapsed.Seconds())

	logger.Printf("cycle complete: targets=%d dirs_removed=%d entries_removed=%d freed=%d bytes errors=%d duration=%.3fs",
		len(cfg.Targets), total.DirsRemoved, total.EntriesRemoved, total.BytesFreed, len(total.Errors), elapsed.Seconds())

	if db != nil {
		record := database.RunRecord{
			StartedAt:      start,
			FinishedAt:     time.Now(),
			Targets:        len(cfg.Targets),
			DirsRemoved:    total.DirsRemoved,
			EntriesRemoved: total.EntriesRemoved,
			BytesFreed:     total.BytesFreed,
			Errors:         len(total.Errors),
			DryRun:         dryRun,
		}
		if err := db.RecordRun(record); err != nil {
			logger.Printf("failed to record run: %v", err)
		}
	}

	return errors.Join(sweepErrs...)
}

// Run loops sweep cycles at the configured interval until the context is
// cancelled. A signal on trigger forces an immediate cycle.
func Run(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger, db *database.SweepDB, sink audit.Logger, trigger <-chan os.Signal) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if err := RunOnceWithDeps(ctx, cfg, dryRun, logger, db, sink); err != nil {
		logger.Printf("error running cycle: %v", err)
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := RunOnceWithDeps(ctx, cfg, dryRun, logger, db, sink); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		case sig := <-trigger:
			if sig == nil {
				continue
			}
			logger.Printf("received %v, running sweep now", sig)
			if err := RunOnceWithDeps(ctx, cfg, dryRun, logger, db, sink); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		}
	}
}

// updateFreeSpaceMetrics refreshes the per-target disk gauges
func updateFreeSpaceMetrics(cfg *config.Config, logger *log.Logger) {
	for _, target := range cfg.Targets {
		stats, err := disk.GetStats(target.Path)
		if err != nil {
			logger.Printf("failed to stat filesystem for %s: %v", target.Path, err)
			continue
		}
		metrics.UpdateTargetDiskMetrics(target.Path, stats)
	}
}
