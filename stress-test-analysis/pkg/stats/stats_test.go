package stats

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/logging"
)

func TestIngestStatsCounters(t *testing.T) {
	s := NewIngestStats()
	s.FilesDiscovered = 6
	s.AddIngested(100, 10, 2, true, time.Millisecond)
	s.AddIngested(50, 5, 0, false, time.Millisecond)
	s.AddPathError()
	s.AddParseError()
	s.AddHostConflict()
	s.AddTypeMismatch()
	s.AddUnreadable(2)

	assert.Equal(t, 2, s.FilesIngested)
	assert.Equal(t, 2, s.EntriesUnreadable)
	assert.Equal(t, 1, s.FilesRepaired)
	assert.Equal(t, int64(150), s.BytesRead)
	assert.Equal(t, int64(15), s.Samples)
	assert.Equal(t, int64(2), s.Timeouts)
	assert.Equal(t, 3, s.FilesFailed())
	assert.Equal(t, 2*time.Millisecond, s.ParseTime)

	var logOut, errOut bytes.Buffer
	s.LogSummary(logging.NewWriterLogger(&logOut, &errOut))
	assert.Contains(t, logOut.String(), "INGESTION SUMMARY")
	assert.Contains(t, logOut.String(), "Host conflicts: 1")
	assert.Contains(t, logOut.String(), "Unreadable:       2")
	assert.Empty(t, errOut.String())
}

func TestProgressTracker(t *testing.T) {
	pt := NewProgressTracker(4)
	assert.Zero(t, pt.Percentage())
	assert.Zero(t, pt.ETA())

	pt.Increment(1)
	assert.Equal(t, 25.0, pt.Percentage())
	assert.Equal(t, 3*time.Second, pt.eta(time.Second))

	pt.Increment(3)
	assert.Zero(t, pt.eta(time.Second))

	var logOut bytes.Buffer
	pt.LogProgress(logging.NewWriterLogger(&logOut, &bytes.Buffer{}), "Files")
	assert.Contains(t, logOut.String(), "Files: 4/4 (100.0%)")

	assert.Zero(t, NewProgressTracker(0).Percentage())
}
