// Package logging provides run-scoped file logging for wayfind components.
// All components of one run append to the same file under ~/.wayfind/logs,
// named by the run ID, so a complete run can be inspected after the fact.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level controls which messages a logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

var (
	runID     string
	runIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

// getRunID returns or creates the run ID for this process.
func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if dir := os.Getenv("WAYFIND_LOG_DIR"); dir != "" {
			logDir = dir
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".wayfind", "logs")
		}
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// Logger writes leveled, component-prefixed entries to the run's log file.
type Logger struct {
	runID     string
	component string
	minLevel  Level
	file      *os.File
	logger    *log.Logger
	logPath   string
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewLogger creates a logger for a component, writing to
// <log-dir>/<run-id>-wayfind.log. When the file cannot be opened it falls
// back to stderr and returns the error beside the working fallback logger.
func NewLogger(component string) (*Logger, error) {
	return NewLoggerAt(component, LevelDebug)
}

// NewLoggerAt creates a logger that drops entries below minLevel.
func NewLoggerAt(component string, minLevel Level) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, minLevel, err), err
	}

	id := getRunID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-wayfind.log", id))

	// Append mode: every component of the run shares the file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, minLevel, err), err
	}

	return &Logger{
		runID:     id,
		component: component,
		minLevel:  minLevel,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

func newFallbackLogger(component string, minLevel Level, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: file logging unavailable, using stderr: %v", err)

	return &Logger{
		runID:     getRunID(),
		component: component,
		minLevel:  minLevel,
		logger:    logger,
	}
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, v...)
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(LevelDebug, format, v...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(LevelInfo, format, v...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(LevelWarn, format, v...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(LevelError, format, v...)
}

// Writer returns the logger's underlying writer.
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// RunID returns this process's run ID.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path of the run's log file, or "" in fallback mode.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// RunID returns the global run ID for this process.
func RunID() string {
	return getRunID()
}

// Directory returns the log directory, creating it if needed.
func Directory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
