package disk

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// Stats describes the filesystem holding a swept target.
type Stats struct {
	FreeBytes   int64
	TotalBytes  int64
	UsedPercent float64
}

// GetStats returns filesystem capacity information for a given path
func GetStats(path string) (*Stats, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, err
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	free := int64(stat.Bavail) * int64(stat.Bsize)

	var usedPercent float64
	if total > 0 {
		usedPercent = (float64(total-free) / float64(total)) * 100.0
	}

	return &Stats{FreeBytes: free, TotalBytes: total, UsedPercent: usedPercent}, nil
}

// GetFreePercent returns the percentage of free disk space
func GetFreePercent(path string) (float64, error) {
	stats, err := GetStats(path)
	if err != nil {
		return 0, err
	}
	return 100.0 - stats.UsedPercent, nil
}

// IsStaleMount checks if a path sits on a hung or stale mount by attempting a
// quick stat with timeout. Returns true if the stat times out or fails with
// mount-specific errors.
func IsStaleMount(path string, timeout time.Duration) bool {
	done := make(chan bool, 1)
	var err error

	// On timeout the goroutine stays blocked in Stat until the mount
	// recovers; one goroutine per probe, bounded by the sweep interval.
	go func() {
		_, err = os.Stat(path)
		done <- true
	}()

	select {
	case <-done:
		if err != nil {
			if os.IsTimeout(err) ||
				errors.Is(err, syscall.EIO) ||
				errors.Is(err, syscall.ESTALE) ||
				errors.Is(err, syscall.ENXIO) {
				return true
			}
		}
		return false
	case <-time.After(timeout):
		// Stat hung, treat the mount as stale
		return true
	}
}
