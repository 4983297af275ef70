package capture

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Role is the part a test participant plays in a run.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// String returns the string representation of the role.
func (r Role) String() string { return string(r) }

// roleDirs maps the directory segment below a host to its role.
var roleDirs = map[string]Role{
	"clients": RoleClient,
	"servers": RoleServer,
}

// PathAttr is the test attribution decoded from a capture file path.
type PathAttr struct {
	Run     string
	Host    string
	Role    Role
	App     string
	Channel string // empty for the app's own files (e.g. <app>.log)
	File    string
}

// HasChannel reports whether the path names a channel capture.
func (a PathAttr) HasChannel() bool { return a.Channel != "" }

func (a PathAttr) String() string {
	channel := a.Channel
	if channel == "" {
		channel = "-"
	}
	return fmt.Sprintf("run=%s host=%s role=%s app=%s channel=%s", a.Run, a.Host, a.Role, a.App, channel)
}

// DecodePath decodes RUN/HOST/{clients|servers}/APP/FILE from the last five
// segments of path. The channel name is the file name up to its first dot.
func DecodePath(path string) (PathAttr, error) {
	var segments []string
	for _, s := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	if len(segments) < 5 {
		return PathAttr{}, &InvalidPathError{
			Path:   path,
			Reason: fmt.Sprintf("expected RUN/HOST/{clients|servers}/APP/FILE, got %d segments", len(segments)),
		}
	}
	segments = segments[len(segments)-5:]

	role, ok := roleDirs[segments[2]]
	if !ok {
		return PathAttr{}, &InvalidPathError{
			Path:   path,
			Reason: fmt.Sprintf("unknown role directory %q", segments[2]),
		}
	}

	attr := PathAttr{
		Run:  segments[0],
		Host: segments[1],
		Role: role,
		App:  segments[3],
		File: segments[4],
	}
	channel, _, _ := strings.Cut(attr.File, ".")
	if channel != attr.App {
		attr.Channel = channel
	}
	return attr, nil
}
