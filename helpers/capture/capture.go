// Package capture reads the per-channel capture files written during an EPICS
// stress test.
//
// Two on-disk formats are supported:
//   - pvCapture: a JSON array of [[secPastEpoch, nsec], value] records written by
//     the pvCapture tool. An interrupted writer leaves a dangling trailing comma,
//     which is repaired in place (the original is kept as <file>.bak).
//   - pvget: the redirected output of the pvget command line tool, one value per
//     line, or a two line "Timeout" marker when no value was received.
//
// Archived runs may also hold zstd compressed pvCapture files (*.pvCapture.zst).
//
// Directory Layout:
//
//	<run>/<host>/clients/<client>/<pv>.pvCapture
//	<run>/<host>/clients/<client>/<pv>.pvget
//	<run>/<host>/clients/<client>/<client>.log
//	<run>/<host>/servers/<server>/...
package capture

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// EPICSEpochOffset is the number of seconds between the Unix epoch and the
	// EPICS epoch (1990-01-01 00:00:00 UTC).
	EPICSEpochOffset = 631152000

	// TimeoutSecStep and TimeoutNsecStep are added to the prior timestamp to place a
	// timeout that carries no timestamp of its own. The offset has no physical
	// meaning; it only keeps the record orderable and inside a nearby bucket.
	TimeoutSecStep  = 2
	TimeoutNsecStep = 1

	// BackupSuffix is appended to a repaired capture file to keep the original.
	BackupSuffix = ".bak"

	// repairSuffix names the sibling a repaired file is staged in.
	repairSuffix = ".repair"
)

// =============================================================================
// File Types
// =============================================================================

// FileType identifies the on-disk format of a capture file.
type FileType string

const (
	FileTypeUnknown      FileType = ""
	FileTypePVCapture    FileType = "pvCapture"
	FileTypePVCaptureZst FileType = "pvCapture.zst"
	FileTypePVGet        FileType = "pvget"
)

// String returns the string representation of the file type.
func (t FileType) String() string {
	if t == FileTypeUnknown {
		return "unknown"
	}
	return string(t)
}

// DetectFileType selects the capture format from a file name.
// Anything that is not a capture file (.log, .list, .cfg, .info, ...) is FileTypeUnknown.
func DetectFileType(fileName string) FileType {
	switch {
	case strings.HasSuffix(fileName, "pvCapture.zst"):
		return FileTypePVCaptureZst
	case strings.HasSuffix(fileName, "pvCapture"):
		return FileTypePVCapture
	case strings.HasSuffix(fileName, ".pvget"):
		return FileTypePVGet
	}
	return FileTypeUnknown
}

// =============================================================================
// Records and Samples
// =============================================================================

// Record is one [[secPastEpoch, nsec], value] entry as read from a capture file.
// Timeout records have no value, and pvget timeouts usually no timestamp either.
type Record struct {
	Sec          int64
	Nsec         int64
	HasTimestamp bool
	Value        float64
	Timeout      bool
}

// Timestamp returns the record timestamp as float seconds past the EPICS epoch.
func (r Record) Timestamp() float64 {
	return float64(r.Sec) + float64(r.Nsec)*1e-9
}

// Sample is a single timestamped channel value.
// Timeout is set when no value was received for the poll.
type Sample struct {
	Timestamp float64
	Value     float64
	Timeout   bool
}

// ToSamples converts records into samples, placing untimestamped timeouts
// TimeoutSecStep seconds and TimeoutNsecStep nanoseconds after the previous record.
//
// numTimeouts counts every timeout record, including leading timeouts that have
// no prior timestamp to anchor on and are therefore dropped.
func ToSamples(records []Record) (samples []Sample, numTimeouts int) {
	samples = make([]Sample, 0, len(records))

	var priorSec, priorNsec int64
	havePrior := false

	for _, rec := range records {
		if rec.Timeout {
			numTimeouts++
			if !rec.HasTimestamp {
				if !havePrior {
					continue
				}
				rec.Sec = priorSec + TimeoutSecStep
				rec.Nsec = priorNsec + TimeoutNsecStep
				rec.HasTimestamp = true
			}
		}
		if !rec.HasTimestamp {
			continue
		}

		samples = append(samples, Sample{
			Timestamp: rec.Timestamp(),
			Value:     rec.Value,
			Timeout:   rec.Timeout,
		})
		priorSec, priorNsec = rec.Sec, rec.Nsec
		havePrior = true
	}
	return samples, numTimeouts
}

// EPICSTime converts float seconds past the EPICS epoch to a UTC time.
func EPICSTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec+EPICSEpochOffset, nsec).UTC()
}

// =============================================================================
// File
// =============================================================================

// File holds the decoded contents of one capture file.
type File struct {
	Path     string
	Type     FileType
	NumLines int
	Records  []Record

	// NumTimeouts counts timeout records, whether or not they carry a timestamp.
	NumTimeouts int

	// Repaired is set when a dangling trailing comma was fixed while reading.
	Repaired bool

	// NumBadLines counts pvget lines skipped for an unparseable timestamp or value.
	NumBadLines int
}

// Samples converts the file records into samples.
func (f *File) Samples() ([]Sample, int) {
	return ToSamples(f.Records)
}

// ReadFile reads and decodes a capture file, dispatching on its file type.
// All decoding failures are returned as *MalformedCaptureFileError.
func ReadFile(path string) (*File, error) {
	fileType := DetectFileType(path)
	switch fileType {
	case FileTypePVCapture:
		return ReadPVCaptureFile(path)
	case FileTypePVCaptureZst:
		return ReadPVCaptureZstFile(path)
	case FileTypePVGet:
		return ReadPVGetFile(path)
	}
	return nil, errors.Errorf("unsupported capture file type: %s", path)
}

// countLines returns the number of lines in data, counting a final
// unterminated line.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func countTimeouts(records []Record) int {
	n := 0
	for i := range records {
		if records[i].Timeout {
			n++
		}
	}
	return n
}

// readAll reads a whole capture file.
func readAll(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}
