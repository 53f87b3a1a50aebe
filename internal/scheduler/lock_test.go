package scheduler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirsweep.lock")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	if _, err := AcquireLock(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning for second acquire, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	lock2, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release failed: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestStaleLockIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirsweep.lock")

	// A lock whose holder is gone (pid 0 never exists) must be reclaimed
	if err := os.WriteFile(path, []byte("0"), 0644); err != nil {
		t.Fatalf("failed to plant stale lock: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got %v", err)
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	if string(data) == "0" {
		t.Error("expected lock file to hold the new pid")
	}
}
