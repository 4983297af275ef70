// =============================================================================
// pkg/stats/stats.go - Ingestion Statistics
// =============================================================================
//
// IngestStats counts what happened to every discovered file: ingested, skipped
// (not a channel capture), or failed with one of the per-file error kinds.
// None of these outcomes stop the walk; the summary is how an operator finds
// out about them.
//
// =============================================================================

package stats

import (
	"sync"
	"time"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
)

// =============================================================================
// IngestStats
// =============================================================================

// IngestStats accumulates per-file outcomes of one ingestion pass.
type IngestStats struct {
	mu sync.Mutex

	// FilesDiscovered is the number of capture files found by the walk
	FilesDiscovered int

	// FilesNotCaptures is the number of non-capture files the walk skipped
	FilesNotCaptures int

	// EntriesUnreadable is the number of files or directories the walk could not read
	EntriesUnreadable int

	// FilesIngested is the number of capture files attributed to a PV
	FilesIngested int

	// FilesNoChannel is the number of capture files named after their app
	FilesNoChannel int

	// FilesRepaired is the number of pvCapture files fixed while reading
	FilesRepaired int

	// PathErrors, ParseErrors and HostConflicts count failed files by cause
	PathErrors    int
	ParseErrors   int
	HostConflicts int

	// TypeMismatches counts files whose format differs from their client's
	TypeMismatches int

	// DuplicateSamples counts samples that replaced one with the same timestamp
	DuplicateSamples int

	// BytesRead is the size of all ingested files
	BytesRead int64

	// Samples and Timeouts count what the ingested files contained
	Samples  int64
	Timeouts int64

	// ParseTime is the cumulative time spent reading and decoding files
	ParseTime time.Duration

	// AnalyzeTime is the time spent in the roll-up
	AnalyzeTime time.Duration

	// StartTime is when ingestion started
	StartTime time.Time
}

// NewIngestStats creates a new IngestStats.
func NewIngestStats() *IngestStats {
	return &IngestStats{StartTime: time.Now()}
}

// FilesFailed returns the number of files skipped because of an error.
func (s *IngestStats) FilesFailed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PathErrors + s.ParseErrors + s.HostConflicts
}

// SetDiscovered records the outcome of the discovery walk.
func (s *IngestStats) SetDiscovered(captures, others int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesDiscovered = captures
	s.FilesNotCaptures = others
}

// AddUnreadable records entries the discovery walk could not read.
func (s *IngestStats) AddUnreadable(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EntriesUnreadable += n
}

// AddIngested records a successfully ingested file.
func (s *IngestStats) AddIngested(bytes int64, samples, timeouts int, repaired bool, parseTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FilesIngested++
	s.BytesRead += bytes
	s.Samples += int64(samples)
	s.Timeouts += int64(timeouts)
	s.ParseTime += parseTime
	if repaired {
		s.FilesRepaired++
	}
}

// AddPathError records a file with an undecodable path.
func (s *IngestStats) AddPathError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PathErrors++
}

// AddParseError records a file that could not be decoded.
func (s *IngestStats) AddParseError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ParseErrors++
}

// AddHostConflict records a file whose client is known under another host.
func (s *IngestStats) AddHostConflict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HostConflicts++
}

// AddTypeMismatch records a file whose format differs from its client's.
func (s *IngestStats) AddTypeMismatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TypeMismatches++
}

// AddNoChannel records a capture file that names no channel.
func (s *IngestStats) AddNoChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesNoChannel++
}

// AddDuplicates records samples that overwrote an earlier sample.
func (s *IngestStats) AddDuplicates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DuplicateSamples += n
}

// SetAnalyzeTime records how long the roll-up took.
func (s *IngestStats) SetAnalyzeTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AnalyzeTime = d
}

// LogSummary logs an ingestion summary to the logger.
func (s *IngestStats) LogSummary(logger interfaces.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.StartTime)
	failed := s.PathErrors + s.ParseErrors + s.HostConflicts

	logger.Separator()
	logger.Info("                    INGESTION SUMMARY")
	logger.Separator()
	logger.Info("")
	logger.Info("FILES:")
	logger.Info("  Discovered:       %s", helpers.FormatNumber(int64(s.FilesDiscovered)))
	logger.Info("  Not captures:     %s", helpers.FormatNumber(int64(s.FilesNotCaptures)))
	if s.EntriesUnreadable > 0 {
		logger.Info("  Unreadable:       %d", s.EntriesUnreadable)
	}
	logger.Info("  Ingested:         %s (%s)", helpers.FormatNumber(int64(s.FilesIngested)), helpers.FormatBytes(s.BytesRead))
	logger.Info("  Repaired:         %s", helpers.FormatNumber(int64(s.FilesRepaired)))
	logger.Info("  No channel:       %s", helpers.FormatNumber(int64(s.FilesNoChannel)))
	logger.Info("  Failed:           %s", helpers.FormatNumber(int64(failed)))
	if failed > 0 {
		logger.Info("    Path errors:    %d", s.PathErrors)
		logger.Info("    Parse errors:   %d", s.ParseErrors)
		logger.Info("    Host conflicts: %d", s.HostConflicts)
	}
	logger.Info("  Type mismatches:  %d", s.TypeMismatches)
	logger.Info("")
	logger.Info("SAMPLES:")
	logger.Info("  Samples:          %s", helpers.FormatNumber(s.Samples))
	logger.Info("  Timeouts:         %s", helpers.FormatNumber(s.Timeouts))
	logger.Info("  Duplicates:       %s", helpers.FormatNumber(int64(s.DuplicateSamples)))
	logger.Info("")
	logger.Info("TIME:")
	logger.Info("  Parse Time:       %s", helpers.FormatDuration(s.ParseTime))
	logger.Info("  Analyze Time:     %s", helpers.FormatDuration(s.AnalyzeTime))
	logger.Info("  Total Time:       %s", helpers.FormatDuration(elapsed))
	logger.Info("  Files/sec:        %s", helpers.FormatRate(int64(s.FilesIngested), s.ParseTime))
	logger.Info("")
}

// =============================================================================
// ProgressTracker
// =============================================================================

// ProgressTracker tracks progress through a known number of items.
type ProgressTracker struct {
	mu sync.Mutex

	// Total is the total number of items to process
	Total int

	// Completed is the number of items completed
	Completed int

	// StartTime is when tracking started
	StartTime time.Time
}

// NewProgressTracker creates a tracker for total items.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{Total: total, StartTime: time.Now()}
}

// Increment adds to the completed count.
func (pt *ProgressTracker) Increment(n int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.Completed += n
}

// Percentage returns the completion percentage (0-100).
func (pt *ProgressTracker) Percentage() float64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.percentage()
}

func (pt *ProgressTracker) percentage() float64 {
	if pt.Total == 0 {
		return 0
	}
	return float64(pt.Completed) / float64(pt.Total) * 100
}

// ETA returns the estimated time to completion at the current rate,
// or 0 when there is not enough data to estimate.
func (pt *ProgressTracker) ETA() time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.eta(time.Since(pt.StartTime))
}

func (pt *ProgressTracker) eta(elapsed time.Duration) time.Duration {
	remaining := pt.Total - pt.Completed
	if pt.Completed == 0 || remaining <= 0 || elapsed <= 0 {
		return 0
	}
	perItem := elapsed / time.Duration(pt.Completed)
	return perItem * time.Duration(remaining)
}

// LogProgress logs the current progress with ETA.
func (pt *ProgressTracker) LogProgress(logger interfaces.Logger, label string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	elapsed := time.Since(pt.StartTime)
	logger.Info("%s: %d/%d (%.1f%%) | elapsed=%s | ETA=%s",
		label, pt.Completed, pt.Total, pt.percentage(),
		helpers.FormatDuration(elapsed.Truncate(time.Second)),
		helpers.FormatDuration(pt.eta(elapsed).Truncate(time.Second)))
}
