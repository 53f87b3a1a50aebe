// Package sweep implements the two sweep modes: pruning empty directories and
// purging directory contents. All deletions flow through an injected
// fsops.Deleter and are gated by the safety validator.
package sweep

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dirsweep/internal/audit"
	"dirsweep/internal/config"
	"dirsweep/internal/database"
	"dirsweep/internal/fsops"
	"dirsweep/internal/metrics"
	"dirsweep/internal/safety"
)

// Mode selects what a sweep removes under its target.
type Mode int

const (
	// PruneEmptyDirs removes directories with zero entries, cascading into
	// parents that become empty, never the target itself.
	PruneEmptyDirs Mode = iota
	// PurgeContents removes every entry under the target, keeping the target.
	PurgeContents
)

func (m Mode) String() string {
	switch m {
	case PruneEmptyDirs:
		return config.ModePruneEmpty
	case PurgeContents:
		return config.ModePurgeContents
	default:
		return "unknown"
	}
}

var (
	ErrUnknownMode    = errors.New("unknown sweep mode")
	ErrTargetNotFound = errors.New("target directory not found")
	ErrNotDirectory   = errors.New("target is not a directory")
)

// ParseMode converts a config mode string into a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case config.ModePruneEmpty:
		return PruneEmptyDirs, nil
	case config.ModePurgeContents:
		return PurgeContents, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Request is one sweep to perform: a target directory and a mode.
type Request struct {
	Target string
	Mode   Mode
}

// Result summarizes one sweep. Errors holds the best-effort failures collected
// while the sweep kept going.
type Result struct {
	DirsRemoved    int
	EntriesRemoved int
	BytesFreed     int64
	Skipped        bool // target missing or on a stale mount; treated as a no-op
	Errors         []error
}

// Err returns the aggregated error for the sweep, or nil
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// SweepLogger interface for structured logging in sweeps
type SweepLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// sweepStdLogger wraps standard log.Logger to implement SweepLogger interface
type sweepStdLogger struct {
	*log.Logger
}

func (l *sweepStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *sweepStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *sweepStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for sweep metrics
type Metrics interface {
	DirsPruned() prometheus.Counter
	EntriesPurged() prometheus.Counter
	BytesFreed() prometheus.Counter
	Errors() prometheus.Counter
}

// sweepMetrics wraps global metrics to implement Metrics interface
type sweepMetrics struct{}

func (m *sweepMetrics) DirsPruned() prometheus.Counter    { return metrics.DirsPrunedTotal }
func (m *sweepMetrics) EntriesPurged() prometheus.Counter { return metrics.EntriesPurgedTotal }
func (m *sweepMetrics) BytesFreed() prometheus.Counter    { return metrics.BytesFreedTotal }
func (m *sweepMetrics) Errors() prometheus.Counter        { return metrics.ErrorsTotal }

// Sweeper performs sweep operations with structured logging
type Sweeper struct {
	logger    SweepLogger
	metrics   Metrics
	sink      audit.Logger // append-only outcome log, may be nil
	deleter   fsops.Deleter
	validator *safety.Validator
	db        *database.SweepDB // sweep history, may be nil
	dryRun    bool
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(logger *log.Logger, sink audit.Logger, dryRun bool, db *database.SweepDB) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		logger:  &sweepStdLogger{Logger: logger},
		metrics: &sweepMetrics{},
		sink:    sink,
		deleter: fsops.OSDeleter{},
		db:      db,
		dryRun:  dryRun,
	}
}

// SetDeleter replaces the filesystem deleter (tests)
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// SetValidator sets the safety validator gating every sweep
func (s *Sweeper) SetValidator(v *safety.Validator) {
	s.validator = v
}

// Run executes one sweep request: validate, act, log.
// Validation failures abort before any filesystem mutation.
func (s *Sweeper) Run(req Request) Result {
	var res Result

	if s.validator != nil {
		if err := s.validator.ValidateSweepTarget(req.Target); err != nil {
			s.logger.Error("Unsafe sweep target", "target", req.Target, "error", err)
			s.recordEntry(database.ActionSkip, req, req.Target, "directory", 0, err.Error())
			s.metrics.Errors().Inc()
			res.Errors = append(res.Errors, fmt.Errorf("validate %s: %w", req.Target, err))
			return res
		}
	}

	info, err := os.Stat(req.Target)
	if err != nil {
		if os.IsNotExist(err) {
			// No-op by contract: report, create nothing, keep the run alive
			s.logger.Info("Target does not exist, skipping", "target", req.Target)
			s.recordEntry(database.ActionSkip, req, req.Target, "directory", 0, ErrTargetNotFound.Error())
			res.Skipped = true
			return res
		}
		s.metrics.Errors().Inc()
		res.Errors = append(res.Errors, fmt.Errorf("stat %s: %w", req.Target, err))
		return res
	}
	if !info.IsDir() {
		s.metrics.Errors().Inc()
		s.recordEntry(database.ActionSkip, req, req.Target, "file", info.Size(), ErrNotDirectory.Error())
		res.Errors = append(res.Errors, fmt.Errorf("%s: %w", req.Target, ErrNotDirectory))
		return res
	}

	switch req.Mode {
	case PruneEmptyDirs:
		s.pruneEmptyDirs(req, &res)
	case PurgeContents:
		s.purgeContents(req, &res)
	default:
		res.Errors = append(res.Errors, fmt.Errorf("%w: %d", ErrUnknownMode, req.Mode))
		return res
	}

	s.appendOutcome(req, &res)
	return res
}

// pruneEmptyDirs walks the tree once, bottom-up: directories are collected and
// visited deepest-first, so removing a leaf can cascade into a parent that
// becomes empty by the time its own turn comes. The target is never removed.
func (s *Sweeper) pruneEmptyDirs(req Request, res *Result) {
	var dirs []string
	err := filepath.WalkDir(req.Target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Error("Walk error", "path", path, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("walk %s: %w", path, err))
			s.metrics.Errors().Inc()
			return nil // best effort, keep walking
		}
		if d.IsDir() && path != req.Target {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("walk %s: %w", req.Target, err))
		return
	}

	// Descending order visits every directory before its parent: the parent
	// path is a strict prefix of the child's, so it sorts earlier ascending.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	removed := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				// Removed externally mid-sweep
				continue
			}
			s.logger.Error("Failed to read directory", "path", dir, "error", err)
			s.recordEntry(database.ActionError, req, dir, "directory", 0, err.Error())
			res.Errors = append(res.Errors, fmt.Errorf("read %s: %w", dir, err))
			s.metrics.Errors().Inc()
			continue
		}

		empty := true
		for _, e := range entries {
			if !removed[filepath.Join(dir, e.Name())] {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}

		if s.dryRun {
			s.logger.Info("[DRY RUN] Would remove empty directory", "path", dir)
			s.recordEntry(database.ActionDryRun, req, dir, "empty_directory", 0, "")
			removed[dir] = true
			res.DirsRemoved++
			continue
		}

		if err := s.deleter.Remove(dir); err != nil {
			if os.IsNotExist(err) {
				s.logger.Info("Directory already removed (race)", "path", dir)
				removed[dir] = true
				continue
			}
			s.logger.Error("Failed to remove empty directory", "path", dir, "error", err)
			s.recordEntry(database.ActionError, req, dir, "empty_directory", 0, err.Error())
			res.Errors = append(res.Errors, fmt.Errorf("remove %s: %w", dir, err))
			s.metrics.Errors().Inc()
			continue
		}

		removed[dir] = true
		res.DirsRemoved++
		s.logStructured(database.ActionPrune, dir, "empty_directory", 0)
		s.recordEntry(database.ActionPrune, req, dir, "empty_directory", 0, "")
		s.metrics.DirsPruned().Inc()
	}
}

// purgeContents removes every entry directly under the target; directories go
// recursively. The target itself stays in place.
func (s *Sweeper) purgeContents(req Request, res *Result) {
	entries, err := os.ReadDir(req.Target)
	if err != nil {
		s.metrics.Errors().Inc()
		res.Errors = append(res.Errors, fmt.Errorf("read %s: %w", req.Target, err))
		return
	}

	for _, entry := range entries {
		path := filepath.Join(req.Target, entry.Name())
		objectType, size := classify(path, entry)

		if s.dryRun {
			s.logger.Info("[DRY RUN] Would remove", "path", path, "object", objectType, "size", size)
			s.recordEntry(database.ActionDryRun, req, path, objectType, size, "")
			res.EntriesRemoved++
			res.BytesFreed += size
			continue
		}

		var rmErr error
		if entry.IsDir() {
			rmErr = s.deleter.RemoveAll(path)
		} else {
			rmErr = s.deleter.Remove(path)
		}
		if rmErr != nil {
			if os.IsNotExist(rmErr) {
				s.logger.Info("Entry already removed (race)", "path", path)
				continue
			}
			s.logger.Error("Failed to remove", "path", path, "error", rmErr)
			s.recordEntry(database.ActionError, req, path, objectType, size, rmErr.Error())
			res.Errors = append(res.Errors, fmt.Errorf("remove %s: %w", path, rmErr))
			s.metrics.Errors().Inc()
			continue
		}

		res.EntriesRemoved++
		res.BytesFreed += size
		s.logStructured(database.ActionPurge, path, objectType, size)
		s.recordEntry(database.ActionPurge, req, path, objectType, size, "")
		s.metrics.EntriesPurged().Inc()
		s.metrics.BytesFreed().Add(float64(size))
	}

	if res.BytesFreed > 0 {
		metrics.RecordTargetFreed(req.Target, res.BytesFreed)
	}
}

// classify determines the object type and best-effort size of an entry
func classify(path string, entry fs.DirEntry) (string, int64) {
	if entry.IsDir() {
		size, count := treeSize(path)
		if count == 0 {
			return "empty_directory", 0
		}
		return "directory", size
	}
	info, err := entry.Info()
	if err != nil {
		return "file", 0
	}
	return "file", info.Size()
}

// treeSize sums regular file sizes under a directory, best effort
func treeSize(root string) (int64, int) {
	var size int64
	var count int
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == root {
			return nil
		}
		count++
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, count
}

// appendOutcome writes the one-line sweep summary to the audit log.
// Audit failures never affect the sweep result.
func (s *Sweeper) appendOutcome(req Request, res *Result) {
	if s.sink == nil {
		return
	}

	var msg string
	switch req.Mode {
	case PruneEmptyDirs:
		msg = fmt.Sprintf("prune-empty %s: removed %d empty directories", req.Target, res.DirsRemoved)
	case PurgeContents:
		msg = fmt.Sprintf("purge-contents %s: removed %d entries, freed %d bytes", req.Target, res.EntriesRemoved, res.BytesFreed)
	}
	if len(res.Errors) > 0 {
		msg += fmt.Sprintf(" (%d errors)", len(res.Errors))
	}
	if s.dryRun {
		msg = "[DRY RUN] " + msg
	}
	s.sink.Append(msg)
}

// logStructured logs with structured format: timestamp, action, path, object type, size
func (s *Sweeper) logStructured(action, path, objectType string, size int64) {
	s.logger.Info(fmt.Sprintf("[%s] %s path=%s object=%s size=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		path,
		objectType,
		size,
	))
}

// recordEntry writes one history row, nil-safe on the database
func (s *Sweeper) recordEntry(action string, req Request, path, objectType string, size int64, errMsg string) {
	if s.db == nil {
		return
	}
	if err := s.db.RecordEntry(action, req.Mode.String(), req.Target, path, objectType, size, errMsg); err != nil {
		s.logger.Error("Failed to record to database", "error", err)
	}
}
