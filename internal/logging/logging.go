package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"dirsweep/internal/config"
)

const (
	logDir  = "/var/log/dirsweep"
	logFile = "daemon.log"
)

// New creates the process logger with default rotation settings
func New() *log.Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates the process logger, writing to stdout and a rotating
// file sized per the logging config
func NewWithConfig(cfg *config.Config) *log.Logger {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", logDir, err)
		return log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
	}

	maxSizeMB := 10
	maxAgeDays := 30
	if cfg != nil {
		if cfg.Logging.MaxSizeMB > 0 {
			maxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxAgeDays > 0 {
			maxAgeDays = cfg.Logging.MaxAgeDays
		}
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFile),
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	mw := io.MultiWriter(os.Stdout, rotating)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}
