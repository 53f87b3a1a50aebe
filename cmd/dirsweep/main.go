package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dirsweep/internal/audit"
	"dirsweep/internal/config"
	"dirsweep/internal/database"
	"dirsweep/internal/exitcodes"
	"dirsweep/internal/logging"
	"dirsweep/internal/metrics"
	"dirsweep/internal/safety"
	"dirsweep/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "/etc/dirsweep/config.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Perform dry run without deleting anything")
	once := flag.Bool("once", false, "Run one sweep cycle and exit (no loop)")
	flag.Parse()

	logger := logging.New()

	logger.Println("dirsweep starting...")
	logger.Printf("Config file: %s", *configPath)
	if *dryRun {
		logger.Println("DRY RUN MODE: Nothing will be deleted")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}
	logger = logging.NewWithConfig(cfg)

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		logger.Printf("Starting Prometheus metrics on %s", cfg.PrometheusAddress())
		metrics.StartServer(cfg.PrometheusAddress(), logger)
	}

	lock, err := scheduler.AcquireLock(cfg.LockPath)
	if err != nil {
		logger.Printf("ERROR: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Printf("ERROR: Failed to release lock: %v", err)
		}
	}()

	var db *database.SweepDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening sweep history database: %s", cfg.DatabasePath)
		db, err = database.NewSweepDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	sink := audit.NewFileLogger(cfg.SweepLogPath, cfg.Logging.MaxSizeMB, cfg.Logging.MaxAgeDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	// SIGUSR1 or POST /trigger forces an immediate sweep
	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	metrics.SetTriggerChannel(trigger)

	logger.Println("Starting sweep scheduler...")
	if *once {
		if err := scheduler.RunOnceWithDeps(ctx, cfg, *dryRun, logger, db, sink); err != nil {
			logger.Printf("ERROR: Sweep failed: %v", err)
			os.Exit(exitCodeFor(err))
		}
		logger.Println("Sweep completed successfully")
	} else {
		err := scheduler.Run(ctx, cfg, *dryRun, logger, db, sink, trigger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitCodeFor(err))
		}
	}

	logger.Println("dirsweep stopped")
}

// exitCodeFor maps a sweep failure to the documented exit-code contract:
// safety violations exit 1, anything else is a runtime error
func exitCodeFor(err error) int {
	if safety.IsViolation(err) {
		return exitcodes.UnsafePath
	}
	return exitcodes.RuntimeError
}
