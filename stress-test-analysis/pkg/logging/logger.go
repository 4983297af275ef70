// =============================================================================
// pkg/logging/logger.go - Dual Logging Implementation
// =============================================================================
//
// This package provides a dual-output logger that writes:
//   - Informational messages to a log file (or stdout)
//   - Warnings and errors to a separate error file (or stderr), and to the log
//
// Both outputs are logrus loggers sharing one line formatter:
//
//	[2006-01-02 15:04:05.000] [SCOPE] ERROR: message
//
// SCOPED LOGGING:
//   Loggers can be scoped with a prefix using WithScope(). This creates a child
//   logger that prefixes all messages with the scope name, e.g.:
//
//     logger, _ := NewDualLogger("analysis.log", "analysis.err")
//     ingestLog := logger.WithScope("INGEST")
//     ingestLog.Info("Reading %s", path) // → [2006-01-02 15:04:05.000] [INGEST] Reading ...
//
// =============================================================================

package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// SeparatorLine is the visual separator used in logs
	SeparatorLine = "========================================================================="

	// TimeFormat is the timestamp format for log messages
	TimeFormat = "2006-01-02 15:04:05.000"

	scopeField = "scope"
)

// =============================================================================
// Line Formatter
// =============================================================================

// LineFormatter renders logrus entries as "[time] [scope] LEVEL: message".
// Info entries carry no level tag.
type LineFormatter struct{}

// Format implements logrus.Formatter.
func (LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	b.WriteString(entry.Time.Format(TimeFormat))
	b.WriteString("] ")

	if scope, ok := entry.Data[scopeField].(string); ok && scope != "" {
		b.WriteByte('[')
		b.WriteString(scope)
		b.WriteString("] ")
	}

	switch entry.Level {
	case logrus.WarnLevel:
		b.WriteString("WARN: ")
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		b.WriteString("ERROR: ")
	}

	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func newLogrus(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       out,
		Formatter: LineFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
}

// =============================================================================
// DualLogger Implementation
// =============================================================================

// DualLogger implements the Logger interface with separate log and error outputs.
type DualLogger struct {
	mu        sync.Mutex
	log       *logrus.Logger
	errs      *logrus.Logger
	logFile   *os.File
	errorFile *os.File
}

// NewDualLogger creates a DualLogger writing to the specified files.
// If the files exist, they are truncated. An empty path selects stdout
// (log) or stderr (errors).
func NewDualLogger(logPath, errorPath string) (*DualLogger, error) {
	var logOut, errOut io.Writer = os.Stdout, os.Stderr
	l := &DualLogger{}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", logPath)
		}
		l.logFile, logOut = f, f
	}

	if errorPath != "" {
		f, err := os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			if l.logFile != nil {
				l.logFile.Close()
			}
			return nil, errors.Wrapf(err, "failed to open error file %s", errorPath)
		}
		l.errorFile, errOut = f, f
	}

	l.log = newLogrus(logOut)
	l.errs = newLogrus(errOut)
	return l, nil
}

// NewWriterLogger creates a DualLogger over arbitrary writers.
func NewWriterLogger(logOut, errOut io.Writer) *DualLogger {
	return &DualLogger{
		log:  newLogrus(logOut),
		errs: newLogrus(errOut),
	}
}

// WithScope creates a scoped logger that prefixes all messages with the scope name.
// The returned ScopedLogger shares the same underlying outputs as the parent.
func (l *DualLogger) WithScope(scope string) interfaces.Logger {
	return &ScopedLogger{parent: l, scope: scope}
}

// Info logs an informational message to the log output.
func (l *DualLogger) Info(format string, args ...interface{}) {
	l.emit("", logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Warn logs a warning to both the error output and the log output.
func (l *DualLogger) Warn(format string, args ...interface{}) {
	l.emit("", logrus.WarnLevel, fmt.Sprintf(format, args...))
}

// Error logs an error message to both the error output and the log output.
func (l *DualLogger) Error(format string, args ...interface{}) {
	l.emit("", logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

func (l *DualLogger) emit(scope string, level logrus.Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := logrus.Fields{}
	if scope != "" {
		fields[scopeField] = scope
	}

	if level != logrus.InfoLevel {
		l.errs.WithFields(fields).Log(level, msg)
	}
	l.log.WithFields(fields).Log(level, msg)
}

// Separator logs a visual separator line to the log output.
func (l *DualLogger) Separator() {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.log.Out, SeparatorLine)
}

// Sync forces a flush of all log data to disk.
func (l *DualLogger) Sync() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Sync()
	}
	if l.errorFile != nil {
		l.errorFile.Sync()
	}
}

// Close closes all log files after syncing. Standard streams are left open.
func (l *DualLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Sync()
		l.logFile.Close()
		l.logFile = nil
		l.log.Out = io.Discard
	}
	if l.errorFile != nil {
		l.errorFile.Sync()
		l.errorFile.Close()
		l.errorFile = nil
		l.errs.Out = io.Discard
	}
}

// =============================================================================
// ScopedLogger - Logger with a Prefix
// =============================================================================

// ScopedLogger wraps a DualLogger and prefixes all messages with a scope name.
//
// ScopedLogger shares the underlying outputs with its parent DualLogger.
// Closing the parent will close the files; do not close ScopedLogger directly.
type ScopedLogger struct {
	parent *DualLogger
	scope  string
}

// WithScope creates a nested scoped logger.
// The scopes are combined: parent.WithScope("A").WithScope("B") → [A:B]
func (l *ScopedLogger) WithScope(scope string) interfaces.Logger {
	return &ScopedLogger{parent: l.parent, scope: l.scope + ":" + scope}
}

// Info logs an informational message with the scope prefix.
func (l *ScopedLogger) Info(format string, args ...interface{}) {
	l.parent.emit(l.scope, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Warn logs a warning with the scope prefix.
func (l *ScopedLogger) Warn(format string, args ...interface{}) {
	l.parent.emit(l.scope, logrus.WarnLevel, fmt.Sprintf(format, args...))
}

// Error logs an error message with the scope prefix.
func (l *ScopedLogger) Error(format string, args ...interface{}) {
	l.parent.emit(l.scope, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// Separator logs a visual separator line (no scope prefix for separators).
func (l *ScopedLogger) Separator() {
	l.parent.Separator()
}

// Sync forces a flush of all log data to disk.
func (l *ScopedLogger) Sync() {
	l.parent.Sync()
}

// Close is a no-op for ScopedLogger. Close the parent DualLogger instead.
func (l *ScopedLogger) Close() {}
