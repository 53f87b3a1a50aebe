// Package audit provides the append-only sweep log: one timestamped line per
// sweep outcome. Writes are best-effort and never affect the sweep result.
package audit

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the sink the sweeper appends outcome lines to.
type Logger interface {
	Append(message string)
}

// FileLogger appends "<timestamp> | <message>" lines to a rotating file.
type FileLogger struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	errOnce sync.Once
}

// NewFileLogger creates a file-backed audit logger with rotation.
func NewFileLogger(path string, maxSizeMB, maxAgeDays int) *FileLogger {
	return &FileLogger{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 3,
			MaxAge:     maxAgeDays,
			Compress:   true,
		},
		now: time.Now,
	}
}

// Append writes one timestamped line. Failures are swallowed so a broken log
// target can never mask the outcome of the sweep itself; the first failure is
// noted once on stderr.
func (l *FileLogger) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s | %s\n", l.now().Format("2006/01/02 15:04:05"), message)
	if _, err := io.WriteString(l.out, line); err != nil {
		l.errOnce.Do(func() {
			fmt.Fprintf(os.Stderr, "audit log write failed (further failures suppressed): %v\n", err)
		})
	}
}

// MemorySink implements Logger for testing
// Records appended lines without any file I/O
type MemorySink struct {
	mu    sync.Mutex
	Lines []string
}

func (m *MemorySink) Append(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, message)
}
