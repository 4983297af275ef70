// =============================================================================
// pkg/interfaces/interfaces.go - Core Interfaces
// =============================================================================
//
// This package defines the interfaces shared across stress-test-analysis.
// The workflow codes against these so tests can substitute in-memory loggers
// and stores.
//
// =============================================================================

package interfaces

import (
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
)

// =============================================================================
// Logger Interface
// =============================================================================

// Logger defines the interface for logging operations.
// Implementations write to a log stream and an error stream separately.
type Logger interface {
	// Info logs an informational message to the log stream.
	Info(format string, args ...interface{})

	// Warn logs a warning to the error stream and the log stream.
	Warn(format string, args ...interface{})

	// Error logs an error message to the error stream and the log stream.
	Error(format string, args ...interface{})

	// Separator logs a visual separator line to the log stream.
	Separator()

	// WithScope returns a logger that prefixes every message with [scope].
	WithScope(scope string) Logger

	// Sync forces a flush of all log buffers to disk.
	Sync()

	// Close closes all log files.
	Close()
}

// =============================================================================
// ResultStore Interface
// =============================================================================

// ResultStore persists analysed runs so they can be compared later without
// re-reading the capture files.
//
// KEY LAYOUT:
//
//	run/<run>/summary              -> RunSummary
//	run/<run>/pv/<client>/<pv>     -> ChannelSeries
//
// where / stands for a NUL separator.
//
// Values are protowire encoded and zstd compressed.
type ResultStore interface {
	// SaveRun writes the summary and every client PV series of an analysed run.
	SaveRun(st *analysis.StressTest) error

	// LoadRunSummary reads a run summary. found is false if the run was never saved.
	LoadRunSummary(run string) (summary analysis.RunSummary, found bool, err error)

	// LoadChannelSeries reads the series of one client PV.
	LoadChannelSeries(run, client, pv string) (series analysis.ChannelSeries, found bool, err error)

	// Path returns the filesystem path of the store.
	Path() string

	// Close releases all resources associated with the store.
	Close()
}
