package capture

import (
	"bytes"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// =============================================================================
// pvCapture Decoding
// =============================================================================

// DecodePVCapture decodes a pvCapture JSON document into records.
//
// Each entry is [[secPastEpoch, nsec], value]. A null value is a timeout.
// A [null, null] timestamp marks a timeout with no timestamp of its own.
func DecodePVCapture(data []byte) ([]Record, error) {
	var raw [][2]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for i, entry := range raw {
		if len(entry[0]) == 0 || len(entry[1]) == 0 {
			return nil, errors.Errorf("entry %d: expected [[sec, nsec], value]", i)
		}

		var ts [2]*int64
		if err := json.Unmarshal(entry[0], &ts); err != nil {
			return nil, errors.Wrapf(err, "entry %d: bad timestamp", i)
		}
		var value *float64
		if err := json.Unmarshal(entry[1], &value); err != nil {
			return nil, errors.Wrapf(err, "entry %d: bad value", i)
		}

		rec := Record{Timeout: value == nil}
		if value != nil {
			rec.Value = *value
		}
		switch {
		case ts[0] != nil && ts[1] != nil:
			rec.Sec, rec.Nsec = *ts[0], *ts[1]
			rec.HasTimestamp = true
		case ts[0] == nil && ts[1] == nil:
			if !rec.Timeout {
				return nil, errors.Errorf("entry %d: value without timestamp", i)
			}
		default:
			return nil, errors.Errorf("entry %d: incomplete timestamp", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// =============================================================================
// Trailing Comma Repair
// =============================================================================

// RepairAction is a planned fix for a pvCapture file whose writer was killed
// mid-array, leaving a dangling comma and no closing bracket.
type RepairAction struct {
	Original  []byte
	Corrected []byte
}

// PlanRepair checks raw for the dangling trailing comma signature on its last
// non-empty line. It does not touch the filesystem. A well-formed file never
// matches, so planning against an already repaired file yields nothing.
func PlanRepair(raw []byte) (RepairAction, bool) {
	trimmed := bytes.TrimRight(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != ',' {
		return RepairAction{}, false
	}

	body := trimmed[:len(trimmed)-1]
	corrected := make([]byte, 0, len(body)+3)
	corrected = append(corrected, body...)
	corrected = append(corrected, "\n]\n"...)

	return RepairAction{Original: raw, Corrected: corrected}, true
}

// ApplyRepair keeps the corrupt original as <path>.bak and writes the
// corrected contents to path. The corrected file is written to a sibling
// first, so a failed write leaves path as it was.
func ApplyRepair(path string, action RepairAction) error {
	staged := path + repairSuffix
	if err := os.WriteFile(staged, action.Corrected, 0644); err != nil {
		os.Remove(staged)
		return errors.Wrapf(err, "failed to write repaired %s", path)
	}

	backup := path + BackupSuffix
	if err := os.Rename(path, backup); err != nil {
		os.Remove(staged)
		return errors.Wrapf(err, "failed to back up %s", path)
	}
	if err := os.Rename(staged, path); err != nil {
		if restoreErr := os.Rename(backup, path); restoreErr != nil {
			return errors.Wrapf(err, "failed to replace %s (original left at %s)", path, backup)
		}
		os.Remove(staged)
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

// =============================================================================
// pvCapture Files
// =============================================================================

// ReadPVCaptureFile reads a pvCapture file, repairing a dangling trailing comma
// in place and retrying the decode once.
func ReadPVCaptureFile(path string) (*File, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, &MalformedCaptureFileError{Path: path, Type: FileTypePVCapture, Err: err}
	}

	f, err := decodePVCaptureWithRepair(path, FileTypePVCapture, data, func(action RepairAction) error {
		return ApplyRepair(path, action)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadPVCaptureZstFile reads a zstd compressed pvCapture file.
// Archives are never rewritten; a repair is applied in memory only.
func ReadPVCaptureZstFile(path string) (*File, error) {
	compressed, err := readAll(path)
	if err != nil {
		return nil, &MalformedCaptureFileError{Path: path, Type: FileTypePVCaptureZst, Err: err}
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	defer decoder.Close()

	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, &MalformedCaptureFileError{
			Path: path,
			Type: FileTypePVCaptureZst,
			Err:  errors.Wrap(err, "zstd decompress failed"),
		}
	}

	return decodePVCaptureWithRepair(path, FileTypePVCaptureZst, data, nil)
}

// decodePVCaptureWithRepair decodes data and, on failure, plans and applies
// one repair before decoding again. apply may be nil for in-memory repair.
func decodePVCaptureWithRepair(
	path string,
	fileType FileType,
	data []byte,
	apply func(RepairAction) error,
) (*File, error) {
	records, err := DecodePVCapture(data)
	if err == nil {
		return newPVCaptureFile(path, fileType, data, records, false), nil
	}

	action, ok := PlanRepair(data)
	if !ok {
		return nil, &MalformedCaptureFileError{Path: path, Type: fileType, Err: err}
	}
	if apply != nil {
		if applyErr := apply(action); applyErr != nil {
			return nil, &MalformedCaptureFileError{Path: path, Type: fileType, Err: applyErr}
		}
	}

	records, err = DecodePVCapture(action.Corrected)
	if err != nil {
		return nil, &MalformedCaptureFileError{
			Path: path,
			Type: fileType,
			Err:  errors.Wrap(err, "still malformed after repair"),
		}
	}
	return newPVCaptureFile(path, fileType, action.Corrected, records, true), nil
}

func newPVCaptureFile(path string, fileType FileType, data []byte, records []Record, repaired bool) *File {
	return &File{
		Path:        path,
		Type:        fileType,
		NumLines:    countLines(data),
		Records:     records,
		NumTimeouts: countTimeouts(records),
		Repaired:    repaired,
	}
}

// CompressPVCapture produces the .pvCapture.zst archive form of a pvCapture file.
func CompressPVCapture(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd encoder")
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}
