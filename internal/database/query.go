package database

import (
	"database/sql"
	"time"
)

const entryColumns = `id, timestamp, action, mode, target, path, file_name, object_type, size, error_message`

// GetRecentEntries returns the N most recent sweep entries
func (d *SweepDB) GetRecentEntries(limit int) ([]EntryRecord, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM sweep_entries
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return d.queryEntries(query, limit)
}

// GetEntriesByAction returns entries filtered by action type
func (d *SweepDB) GetEntriesByAction(action string) ([]EntryRecord, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM sweep_entries
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return d.queryEntries(query, action)
}

// GetEntriesByPath returns entries matching a path pattern
func (d *SweepDB) GetEntriesByPath(pathPattern string) ([]EntryRecord, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM sweep_entries
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return d.queryEntries(query, pathPattern)
}

// GetEntriesByTarget returns entries recorded under a configured sweep target
func (d *SweepDB) GetEntriesByTarget(target string) ([]EntryRecord, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM sweep_entries
	WHERE target = ?
	ORDER BY timestamp DESC
	`

	return d.queryEntries(query, target)
}

// GetLargestEntries returns the N largest removals by size
func (d *SweepDB) GetLargestEntries(limit int) ([]EntryRecord, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM sweep_entries
	WHERE action IN (?, ?)
	ORDER BY size DESC
	LIMIT ?
	`

	return d.queryEntries(query, ActionPrune, ActionPurge, limit)
}

// GetEntryCountByAction returns count of entries grouped by action
func (d *SweepDB) GetEntryCountByAction() (map[string]int, error) {
	query := `
	SELECT action, COUNT(*)
	FROM sweep_entries
	GROUP BY action
	`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// GetRecentRuns returns the N most recent run summaries
func (d *SweepDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, targets, dirs_removed, entries_removed, bytes_freed, errors, dry_run
	FROM sweep_runs
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var dryRun int
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Targets,
			&r.DirsRemoved, &r.EntriesRemoved, &r.BytesFreed, &r.Errors, &dryRun); err != nil {
			return nil, err
		}
		r.DryRun = dryRun != 0
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// SweepStats holds aggregated history statistics
type SweepStats struct {
	StartDate       time.Time
	EndDate         time.Time
	TotalRemoved    int
	TotalSkipped    int
	TotalErrors     int
	TotalBytesFreed int64
	TotalRuns       int
	ByAction        map[string]int
}

// GetSweepStats returns aggregated statistics over the last N days
func (d *SweepDB) GetSweepStats(days int) (*SweepStats, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	stats := &SweepStats{
		StartDate: start,
		EndDate:   end,
		ByAction:  make(map[string]int),
	}

	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM sweep_entries
	WHERE timestamp BETWEEN ? AND ?
	GROUP BY action
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		stats.ByAction[action] = count
		switch action {
		case ActionPrune, ActionPurge:
			stats.TotalRemoved += count
		case ActionSkip:
			stats.TotalSkipped += count
		case ActionError:
			stats.TotalErrors += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = d.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM sweep_entries
	WHERE action IN (?, ?) AND timestamp BETWEEN ? AND ?
	`, ActionPrune, ActionPurge, start, end).Scan(&stats.TotalBytesFreed)
	if err != nil {
		return nil, err
	}

	err = d.db.QueryRow(`
	SELECT COUNT(*)
	FROM sweep_runs
	WHERE started_at BETWEEN ? AND ?
	`, start, end).Scan(&stats.TotalRuns)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return stats, nil
}

// queryEntries executes a query and scans entry records
func (d *SweepDB) queryEntries(query string, args ...interface{}) ([]EntryRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EntryRecord
	for rows.Next() {
		var e EntryRecord
		var fileName, errorMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Mode, &e.Target,
			&e.Path, &fileName, &e.ObjectType, &e.Size, &errorMsg); err != nil {
			return nil, err
		}
		e.FileName = fileName.String
		e.ErrorMessage = errorMsg.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
