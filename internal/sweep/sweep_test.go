package sweep

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"dirsweep/internal/audit"
	"dirsweep/internal/database"
	"dirsweep/internal/fsops"
	"dirsweep/internal/metrics"
	"dirsweep/internal/safety"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("Failed to create dir %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func newTestSweeper(t *testing.T, root string, dryRun bool) *Sweeper {
	t.Helper()
	s := NewSweeper(log.Default(), nil, dryRun, nil)
	s.SetValidator(safety.NewValidator([]string{root}, nil))
	return s
}

// TestPruneCascade verifies removing a leaf empty directory cascades into a
// parent that becomes empty within the same pass
func TestPruneCascade(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a"))
	mkdirAll(t, filepath.Join(root, "b", "c"))
	mkdirAll(t, filepath.Join(root, "d"))
	writeFile(t, filepath.Join(root, "d", "file.txt"), "keep")

	s := newTestSweeper(t, root, false)
	res := s.Run(Request{Target: root, Mode: PruneEmptyDirs})

	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.DirsRemoved != 3 {
		t.Errorf("Expected 3 directories removed (a, b/c, b), got %d", res.DirsRemoved)
	}

	for _, gone := range []string{"a", "b", filepath.Join("b", "c")} {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed", gone)
		}
	}
	for _, kept := range []string{"d", filepath.Join("d", "file.txt")} {
		if _, err := os.Stat(filepath.Join(root, kept)); err != nil {
			t.Errorf("Expected %s to remain: %v", kept, err)
		}
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("Root must never be removed: %v", err)
	}
}

// TestPruneNonEmptyTreeUntouched verifies nothing is removed when every
// directory holds content
func TestPruneNonEmptyTreeUntouched(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "x", "y", "z"))
	writeFile(t, filepath.Join(root, "x", "y", "z", "data.bin"), "payload")

	s := newTestSweeper(t, root, false)
	res := s.Run(Request{Target: root, Mode: PruneEmptyDirs})

	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.DirsRemoved != 0 {
		t.Errorf("Expected 0 directories removed, got %d", res.DirsRemoved)
	}
	if _, err := os.Stat(filepath.Join(root, "x", "y", "z", "data.bin")); err != nil {
		t.Errorf("Expected content to remain: %v", err)
	}
}

// TestPruneIdempotent verifies a second prune over the same tree is a no-op
func TestPruneIdempotent(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a", "b"))
	mkdirAll(t, filepath.Join(root, "keep"))
	writeFile(t, filepath.Join(root, "keep", "f"), "x")

	s := newTestSweeper(t, root, false)

	first := s.Run(Request{Target: root, Mode: PruneEmptyDirs})
	if first.DirsRemoved != 2 {
		t.Fatalf("Expected 2 directories removed on first run, got %d", first.DirsRemoved)
	}

	second := s.Run(Request{Target: root, Mode: PruneEmptyDirs})
	if second.DirsRemoved != 0 {
		t.Errorf("Expected second run to be a no-op, removed %d", second.DirsRemoved)
	}
	if err := second.Err(); err != nil {
		t.Errorf("Second run reported errors: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "keep", "f")); err != nil {
		t.Errorf("Expected kept file to remain: %v", err)
	}
}

// TestPurgeLeavesTargetEmpty verifies purge removes all descendants but keeps
// the target directory itself
func TestPurgeLeavesTargetEmpty(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "spool")
	mkdirAll(t, filepath.Join(target, "nested", "deep"))
	writeFile(t, filepath.Join(target, "top.txt"), "a")
	writeFile(t, filepath.Join(target, "nested", "mid.txt"), "bb")
	writeFile(t, filepath.Join(target, "nested", "deep", "leaf.txt"), "ccc")

	s := newTestSweeper(t, target, false)
	res := s.Run(Request{Target: target, Mode: PurgeContents})

	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.EntriesRemoved != 2 {
		t.Errorf("Expected 2 top-level entries removed, got %d", res.EntriesRemoved)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatalf("Target must still exist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected target to be empty, found %d entries", len(entries))
	}
}

// TestPurgeMissingTarget verifies a missing target is a no-op with no creation
func TestPurgeMissingTarget(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "does-not-exist")

	s := newTestSweeper(t, target, false)
	res := s.Run(Request{Target: target, Mode: PurgeContents})

	if !res.Skipped {
		t.Error("Expected missing target to be reported as skipped")
	}
	if err := res.Err(); err != nil {
		t.Errorf("Missing target must not fail the run: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Purge must not create the target directory")
	}
}

// TestUnsafeTargetNoMutation verifies validation failures abort before any
// delete call
func TestUnsafeTargetNoMutation(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name   string
		target string
	}{
		{"empty path", ""},
		{"filesystem root", "/"},
		{"outside allowed roots", "/var/tmp/other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fsops.FakeDeleter{}
			s := NewSweeper(log.Default(), nil, false, nil)
			s.SetDeleter(fake)
			s.SetValidator(safety.NewValidator([]string{root}, nil))

			res := s.Run(Request{Target: tt.target, Mode: PruneEmptyDirs})

			if err := res.Err(); err == nil {
				t.Fatalf("Expected validation error for %q", tt.target)
			} else if !safety.IsViolation(err) {
				t.Errorf("Expected a safety violation, got %v", err)
			}
			if len(fake.Calls) != 0 {
				t.Errorf("Expected zero delete calls, got %v", fake.Calls)
			}
		})
	}
}

// TestFailedDeletesContinueAndAggregate verifies a failing delete does not stop
// the sweep: every remaining entry is still attempted and all failures are
// joined into the result
func TestFailedDeletesContinueAndAggregate(t *testing.T) {
	boom := errors.New("boom")

	t.Run("prune-empty", func(t *testing.T) {
		root := t.TempDir()
		mkdirAll(t, filepath.Join(root, "a"))
		mkdirAll(t, filepath.Join(root, "b"))

		fake := &fsops.FakeDeleter{Err: boom}
		s := NewSweeper(log.Default(), nil, false, nil)
		s.SetDeleter(fake)
		s.SetValidator(safety.NewValidator([]string{root}, nil))

		res := s.Run(Request{Target: root, Mode: PruneEmptyDirs})

		if len(fake.Calls) != 2 {
			t.Errorf("Expected both directories attempted, got calls %v", fake.Calls)
		}
		if len(res.Errors) != 2 {
			t.Errorf("Expected 2 aggregated errors, got %d: %v", len(res.Errors), res.Errors)
		}
		if err := res.Err(); !errors.Is(err, boom) {
			t.Errorf("Expected joined error to wrap the delete failure, got %v", err)
		}
		if res.DirsRemoved != 0 {
			t.Errorf("Failed removals must not be counted, got %d", res.DirsRemoved)
		}
	})

	t.Run("purge-contents", func(t *testing.T) {
		base := t.TempDir()
		target := filepath.Join(base, "spool")
		mkdirAll(t, filepath.Join(target, "sub"))
		writeFile(t, filepath.Join(target, "f.txt"), "x")

		fake := &fsops.FakeDeleter{Err: boom}
		s := NewSweeper(log.Default(), nil, false, nil)
		s.SetDeleter(fake)
		s.SetValidator(safety.NewValidator([]string{target}, nil))

		res := s.Run(Request{Target: target, Mode: PurgeContents})

		if len(fake.Calls) != 2 {
			t.Errorf("Expected both entries attempted, got calls %v", fake.Calls)
		}
		if len(res.Errors) != 2 {
			t.Errorf("Expected 2 aggregated errors, got %d: %v", len(res.Errors), res.Errors)
		}
		if res.EntriesRemoved != 0 || res.BytesFreed != 0 {
			t.Errorf("Failed removals must not be counted: %+v", res)
		}
	})
}

// TestHistoryRowsPerOutcome verifies each sweep outcome lands as a row in the
// history database
func TestHistoryRowsPerOutcome(t *testing.T) {
	db, err := database.NewSweepDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSweepDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	pruneRoot := t.TempDir()
	mkdirAll(t, filepath.Join(pruneRoot, "empty"))

	purgeRoot := t.TempDir()
	writeFile(t, filepath.Join(purgeRoot, "f.txt"), "x")

	missing := filepath.Join(t.TempDir(), "gone")

	s := NewSweeper(log.Default(), nil, false, db)
	s.SetValidator(safety.NewValidator([]string{pruneRoot, purgeRoot, missing}, nil))

	if res := s.Run(Request{Target: pruneRoot, Mode: PruneEmptyDirs}); res.Err() != nil {
		t.Fatalf("prune run failed: %v", res.Err())
	}
	if res := s.Run(Request{Target: purgeRoot, Mode: PurgeContents}); res.Err() != nil {
		t.Fatalf("purge run failed: %v", res.Err())
	}
	if res := s.Run(Request{Target: missing, Mode: PurgeContents}); !res.Skipped {
		t.Fatal("expected missing target to be skipped")
	}

	checks := []struct {
		action   string
		wantPath string
	}{
		{database.ActionPrune, filepath.Join(pruneRoot, "empty")},
		{database.ActionPurge, filepath.Join(purgeRoot, "f.txt")},
		{database.ActionSkip, missing},
	}
	for _, c := range checks {
		rows, err := db.GetEntriesByAction(c.action)
		if err != nil {
			t.Fatalf("GetEntriesByAction(%s) failed: %v", c.action, err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 %s row, got %d", c.action, len(rows))
		}
		if rows[0].Path != c.wantPath {
			t.Errorf("%s row path = %q, want %q", c.action, rows[0].Path, c.wantPath)
		}
	}
}

// TestAuditOutcomeLine verifies one summary line is appended per sweep
func TestAuditOutcomeLine(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "empty"))

	sink := &audit.MemorySink{}
	s := NewSweeper(log.Default(), sink, false, nil)
	s.SetValidator(safety.NewValidator([]string{root}, nil))

	res := s.Run(Request{Target: root, Mode: PruneEmptyDirs})
	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(sink.Lines) != 1 {
		t.Fatalf("Expected 1 audit line, got %d: %v", len(sink.Lines), sink.Lines)
	}
	want := "prune-empty " + root + ": removed 1 empty directories"
	if sink.Lines[0] != want {
		t.Errorf("Audit line = %q, want %q", sink.Lines[0], want)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"prune-empty", PruneEmptyDirs, false},
		{"purge-contents", PurgeContents, false},
		{"", 0, true},
		{"purge", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) expected error, got nil", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
