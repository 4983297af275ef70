package capture

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// =============================================================================
// pvget Line Patterns
// =============================================================================

var (
	// PV:NAME  YYYY-MM-DD HH:MM:SS.FFF   VALUE
	pvgetValueRegex = regexp.MustCompile(
		`^(\S*)\s+(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d+\.?\d*)\s+(\d+\.?\d*)`)

	// Timeout  YYYY-MM-DD HH:MM:SS.FFF
	pvgetTimeoutTsRegex = regexp.MustCompile(
		`^Timeout\s+(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d+\.?\d*)`)

	// Read 1234
	pvgetReadRegex = regexp.MustCompile(`^Read\s+\d+`)
)

// =============================================================================
// pvget Decoding
// =============================================================================

// DecodePVGet parses pvget output into records.
//
// A bare "Timeout" line yields an untimestamped timeout record; the channel
// name line that follows it matches nothing and is ignored, as is any other
// unrecognized line. Lines that match but carry an impossible timestamp or
// value are skipped and counted in numBadLines.
func DecodePVGet(data []byte) (records []Record, numLines, numBadLines int, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		numLines++
		line := scanner.Text()

		if strings.HasPrefix(line, "Timeout") {
			rec := Record{Timeout: true}
			if m := pvgetTimeoutTsRegex.FindStringSubmatch(line); m != nil {
				sec, nsec, tsErr := parseEPICSTimestamp(m[1], m[2])
				if tsErr != nil {
					numBadLines++
					continue
				}
				rec.Sec, rec.Nsec, rec.HasTimestamp = sec, nsec, true
			}
			records = append(records, rec)
			continue
		}

		if pvgetReadRegex.MatchString(line) {
			continue
		}

		m := pvgetValueRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sec, nsec, tsErr := parseEPICSTimestamp(m[2], m[3])
		value, parseErr := strconv.ParseFloat(m[4], 64)
		if tsErr != nil || parseErr != nil {
			numBadLines++
			continue
		}
		records = append(records, Record{
			Sec:          sec,
			Nsec:         nsec,
			HasTimestamp: true,
			Value:        value,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, numLines, numBadLines, errors.Wrap(err, "scan failed")
	}
	return records, numLines, numBadLines, nil
}

// ReadPVGetFile reads a pvget transcript. There is no repair path for this format.
func ReadPVGetFile(path string) (*File, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, &MalformedCaptureFileError{Path: path, Type: FileTypePVGet, Err: err}
	}

	records, numLines, numBadLines, err := DecodePVGet(data)
	if err != nil {
		return nil, &MalformedCaptureFileError{Path: path, Type: FileTypePVGet, Err: err}
	}

	return &File{
		Path:        path,
		Type:        FileTypePVGet,
		NumLines:    numLines,
		Records:     records,
		NumTimeouts: countTimeouts(records),
		NumBadLines: numBadLines,
	}, nil
}

// parseEPICSTimestamp converts a UTC "YYYY-MM-DD" date and "HH:MM:SS[.fff]"
// time into seconds and nanoseconds past the EPICS epoch.
func parseEPICSTimestamp(date, clock string) (sec, nsec int64, err error) {
	whole, frac, _ := strings.Cut(clock, ".")

	t, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+whole, time.UTC)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bad timestamp %q", date+" "+clock)
	}

	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nsec, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "bad fractional seconds %q", clock)
		}
	}
	return t.Unix() - EPICSEpochOffset, nsec, nil
}
