// Package logging provides structured debug logging for surf components.
// All logs for one CLI invocation are written to an invocation-specific file
// in ~/.surf/logs/ so that user-facing stdout output stays clean.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes timestamped entries for a single component.
// All log methods write unconditionally; there is no level filtering.
type Logger struct {
	invocationID string
	component    string
	file         *os.File
	logger       *log.Logger
	mu           sync.Mutex
	closeOnce    sync.Once
}

var (
	// Invocation ID shared by all loggers created in this process
	invocationID     string
	invocationIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

func getInvocationID() string {
	invocationIDOnce.Do(func() {
		invocationID = uuid.New().String()
	})
	return invocationID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".surf", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates a logger for a specific component, writing to
// ~/.surf/logs/<invocation-id>-surf.log.
//
// If the log directory or file cannot be created, a fallback logger that
// writes to stderr is returned along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component), err
	}

	id := getInvocationID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-surf.log", id))

	// Append mode: multiple components share one file per invocation.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component), fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		invocationID: id,
		component:    component,
		file:         file,
		logger:       log.New(file, "", 0), // timestamps formatted below
	}, nil
}

func newFallbackLogger(component string) *Logger {
	return &Logger{
		invocationID: getInvocationID(),
		component:    component,
		logger:       log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags),
	}
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, args...)
	if l.file != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05.000")
		l.logger.Printf("%s [%s] [%s] %s", timestamp, level, l.component, message)
	} else {
		l.logger.Printf("[%s] %s", level, message)
	}
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write("DEBUG", format, args...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write("INFO", format, args...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write("WARN", format, args...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write("ERROR", format, args...)
}

// Close closes the underlying log file, if any. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
