package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SweepDB manages the SQLite database for sweep history
type SweepDB struct {
	db *sql.DB
}

// Entry actions recorded in the history database.
const (
	ActionPrune  = "PRUNE"   // empty directory removed
	ActionPurge  = "PURGE"   // entry removed under a purge target
	ActionDryRun = "DRY_RUN" // would have removed, dry-run mode
	ActionSkip   = "SKIP"    // target or entry skipped (unsafe, stale mount, missing)
	ActionError  = "ERROR"   // removal attempted and failed
)

// EntryRecord represents a single sweep outcome for one filesystem entry
type EntryRecord struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	Mode         string // prune-empty | purge-contents
	Target       string // configured sweep target the entry belongs to
	Path         string
	FileName     string
	ObjectType   string // file | directory | empty_directory
	Size         int64
	ErrorMessage string
	CreatedAt    time.Time
}

// RunRecord summarizes one completed sweep cycle
type RunRecord struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     time.Time
	Targets        int
	DirsRemoved    int
	EntriesRemoved int
	BytesFreed     int64
	Errors         int
	DryRun         bool
}

// NewSweepDB creates a new database connection and initializes schema
func NewSweepDB(dbPath string) (*SweepDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A simple query instead of Ping() so the database file gets created
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode: multiple readers, one writer
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	sdb := &SweepDB{db: db}
	if err = sdb.initSchema(); err != nil {
		return nil, err
	}

	err = nil
	return sdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *SweepDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sweep_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		mode TEXT NOT NULL,
		target TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON sweep_entries(timestamp);
	CREATE INDEX IF NOT EXISTS idx_entries_action ON sweep_entries(action);
	CREATE INDEX IF NOT EXISTS idx_entries_target ON sweep_entries(target);
	CREATE INDEX IF NOT EXISTS idx_entries_path ON sweep_entries(path);
	CREATE INDEX IF NOT EXISTS idx_entries_size ON sweep_entries(size);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		targets INTEGER NOT NULL,
		dirs_removed INTEGER NOT NULL,
		entries_removed INTEGER NOT NULL,
		bytes_freed INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		dry_run INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON sweep_runs(started_at);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordEntry inserts one sweep outcome into the database
func (d *SweepDB) RecordEntry(action, mode, target, path, objectType string, size int64, errorMsg string) error {
	query := `
	INSERT INTO sweep_entries (
		timestamp, action, mode, target, path, file_name, object_type, size, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		time.Now().UTC(),
		action,
		mode,
		target,
		path,
		filepath.Base(path),
		objectType,
		size,
		errorMsg,
	)
	return err
}

// RecordRun inserts a completed run summary
func (d *SweepDB) RecordRun(run RunRecord) error {
	query := `
	INSERT INTO sweep_runs (
		started_at, finished_at, targets, dirs_removed, entries_removed, bytes_freed, errors, dry_run
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	dryRun := 0
	if run.DryRun {
		dryRun = 1
	}

	_, err := d.db.Exec(
		query,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Targets,
		run.DirsRemoved,
		run.EntriesRemoved,
		run.BytesFreed,
		run.Errors,
		dryRun,
	)
	return err
}

// Close closes the database connection
func (d *SweepDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *SweepDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// DeleteOldRecords removes history older than the given number of days and
// returns the count of deleted entry rows
func (d *SweepDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	res, err := d.db.Exec("DELETE FROM sweep_entries WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	entries, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := d.db.Exec("DELETE FROM sweep_runs WHERE started_at < ?", cutoff); err != nil {
		return entries, err
	}
	return entries, nil
}
