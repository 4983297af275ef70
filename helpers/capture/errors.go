package capture

import "fmt"

// MalformedCaptureFileError is returned when a capture file cannot be decoded,
// after the one permitted repair attempt for pvCapture files.
type MalformedCaptureFileError struct {
	Path string
	Type FileType
	Err  error
}

func (e *MalformedCaptureFileError) Error() string {
	return fmt.Sprintf("malformed %s capture file %s: %v", e.Type, e.Path, e.Err)
}

func (e *MalformedCaptureFileError) Unwrap() error { return e.Err }

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *MalformedCaptureFileError) Cause() error { return e.Err }

// InvalidPathError is returned when a file path does not follow
// RUN/HOST/{clients|servers}/APP/FILE.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid capture path %s: %s", e.Path, e.Reason)
}
