package sweep

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"dirsweep/internal/fsops"
	"dirsweep/internal/safety"
)

// TestDryRunNeverDeletes proves the dry-run contract:
// When dryRun=true, ZERO delete syscalls must occur
func TestDryRunNeverDeletes(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "empty"))
	mkdirAll(t, filepath.Join(root, "full"))
	writeFile(t, filepath.Join(root, "full", "f.txt"), "data")

	for _, mode := range []Mode{PruneEmptyDirs, PurgeContents} {
		t.Run(mode.String(), func(t *testing.T) {
			fake := &fsops.FakeDeleter{}
			s := NewSweeper(log.Default(), nil, true, nil) // dryRun=true
			s.SetDeleter(fake)
			s.SetValidator(safety.NewValidator([]string{root}, nil))

			res := s.Run(Request{Target: root, Mode: mode})
			if err := res.Err(); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			// DRY-RUN CONTRACT: Assert ZERO delete calls occurred
			if len(fake.Calls) != 0 {
				t.Errorf("DRY-RUN VIOLATION: Expected 0 delete calls, got %d: %v",
					len(fake.Calls), fake.Calls)
			}
		})
	}
}

// TestDryRunPruneSimulatesCascade verifies the dry-run count matches what a
// real prune would remove, including cascaded parents
func TestDryRunPruneSimulatesCascade(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a"))
	mkdirAll(t, filepath.Join(root, "b", "c"))
	writeFile(t, filepath.Join(root, "keep.txt"), "x")

	fake := &fsops.FakeDeleter{}
	s := NewSweeper(log.Default(), nil, true, nil)
	s.SetDeleter(fake)
	s.SetValidator(safety.NewValidator([]string{root}, nil))

	res := s.Run(Request{Target: root, Mode: PruneEmptyDirs})
	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DirsRemoved != 3 {
		t.Errorf("Expected dry run to report 3 removable directories, got %d", res.DirsRemoved)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Expected 0 delete calls, got %v", fake.Calls)
	}
	if _, err := os.Stat(filepath.Join(root, "b", "c")); err != nil {
		t.Errorf("Dry run must leave the tree intact: %v", err)
	}
}

// TestRealModeCallsDeleter proves that non-dry-run mode DOES call the deleter
func TestRealModeCallsDeleter(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "spool")
	mkdirAll(t, filepath.Join(target, "sub"))
	writeFile(t, filepath.Join(target, "file.txt"), "data")

	fake := &fsops.FakeDeleter{}
	s := NewSweeper(log.Default(), nil, false, nil) // dryRun=false
	s.SetDeleter(fake)
	s.SetValidator(safety.NewValidator([]string{target}, nil))

	res := s.Run(Request{Target: target, Mode: PurgeContents})
	if err := res.Err(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.Calls) != 2 {
		t.Fatalf("Expected 2 delete calls, got %d: %v", len(fake.Calls), fake.Calls)
	}

	want := map[string]bool{
		"rm:" + filepath.Join(target, "file.txt"): true,
		"rmall:" + filepath.Join(target, "sub"):   true,
	}
	for _, call := range fake.Calls {
		if !want[call] {
			t.Errorf("Unexpected delete call %s", call)
		}
	}
}
