package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RunLevel represents the verbosity of the run log file.
type RunLevel int

const (
	// RunLevelInfo is the default run log level.
	RunLevelInfo RunLevel = iota
	// RunLevelDebug enables verbose debug lines.
	RunLevelDebug
)

// Rotation limits for the run log.
const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

// RunLog writes human-readable per-run lines to a rotating log file.
type RunLog struct {
	level    RunLevel
	logger   *log.Logger
	rotator  *lumberjack.Logger
	filePath string
}

// Setup creates a run log that writes to a timestamped file in logDir.
// Returns nil if logging is disabled (noLog=true).
func Setup(logDir string, verbose, noLog bool) (*RunLog, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("hdrkit_run_%s.log", timestamp))

	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}

	level := RunLevelInfo
	if verbose {
		level = RunLevelDebug
	}

	l := &RunLog{
		level:    level,
		logger:   log.New(rotator, "", log.LstdFlags),
		rotator:  rotator,
		filePath: filePath,
	}

	l.Info("hdrkit starting")
	if verbose {
		l.Info("Debug level logging enabled")
	}
	l.Info("Log file: %s", filePath)

	return l, nil
}

// Close flushes and closes the log file.
func (l *RunLog) Close() error {
	if l == nil || l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

// FilePath returns the path to the log file.
func (l *RunLog) FilePath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Info logs an info-level line.
func (l *RunLog) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[INFO] "+format, args...)
}

// Debug logs a debug-level line (only if verbose mode is enabled).
func (l *RunLog) Debug(format string, args ...any) {
	if l == nil || l.level < RunLevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] "+format, args...)
}

// Warn logs a warning line.
func (l *RunLog) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[WARN] "+format, args...)
}

// Error logs an error line.
func (l *RunLog) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[ERROR] "+format, args...)
}

// Writer returns an io.Writer backed by the rotating log file, used to
// send structured slog output to the same file.
func (l *RunLog) Writer() io.Writer {
	if l == nil || l.rotator == nil {
		return io.Discard
	}
	return l.rotator
}
