package capture

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		want FileType
	}{
		{"chanY.pvCapture", FileTypePVCapture},
		{"chanYpvCapture", FileTypePVCapture},
		{"chanY.pvCapture.zst", FileTypePVCaptureZst},
		{"chanY.pvget", FileTypePVGet},
		{"chanY.pvCapture.bak", FileTypeUnknown},
		{"appX.log", FileTypeUnknown},
		{"pvs.list", FileTypeUnknown},
		{"test.cfg", FileTypeUnknown},
		{"host.info", FileTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFileType(tt.name), tt.name)
	}
	assert.Equal(t, "unknown", FileTypeUnknown.String())
}

func TestToSamplesFabricatesTimeoutTimestamps(t *testing.T) {
	records := []Record{
		{Timeout: true}, // nothing to anchor on
		{Sec: 100, Nsec: 10, HasTimestamp: true, Value: 1},
		{Timeout: true},
		{Timeout: true},
		{Sec: 101, Nsec: 0, HasTimestamp: true, Value: 2},
	}

	samples, numTimeouts := ToSamples(records)
	assert.Equal(t, 3, numTimeouts)
	require.Len(t, samples, 4)

	assert.Equal(t, Record{Sec: 100, Nsec: 10}.Timestamp(), samples[0].Timestamp)
	assert.Equal(t, Record{Sec: 102, Nsec: 11}.Timestamp(), samples[1].Timestamp)
	assert.Equal(t, Record{Sec: 104, Nsec: 12}.Timestamp(), samples[2].Timestamp)
	assert.True(t, samples[1].Timeout)
	assert.True(t, samples[2].Timeout)
	assert.False(t, samples[3].Timeout)
	assert.Equal(t, 2.0, samples[3].Value)
}

func TestToSamplesKeepsTimestampedTimeouts(t *testing.T) {
	samples, numTimeouts := ToSamples([]Record{{Sec: 5, HasTimestamp: true, Timeout: true}})
	assert.Equal(t, 1, numTimeouts)
	require.Len(t, samples, 1)
	assert.Equal(t, Sample{Timestamp: 5, Timeout: true}, samples[0])
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("appX.log")
	assert.Error(t, err)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("abc")))
	assert.Equal(t, 2, countLines([]byte("a\nb\n")))
	assert.Equal(t, 3, countLines([]byte("a\nb\nc")))
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "hostA", "clients", "appX")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	for _, name := range []string{"b.pvget", "a.pvCapture", "c.pvCapture.zst", "appX.log", "pvs.list", "a.pvCapture.bak"} {
		writeFile(t, appDir, name, "")
	}

	found, err := DiscoverFiles(root)
	require.NoError(t, err)
	assert.Equal(t, 3, found.NumSkipped)
	require.Len(t, found.Files, 3)

	assert.Equal(t, filepath.Join(appDir, "a.pvCapture"), found.Files[0].Path)
	assert.Equal(t, FileTypePVCapture, found.Files[0].Type)
	assert.Equal(t, FileTypePVGet, found.Files[1].Type)
	assert.Equal(t, FileTypePVCaptureZst, found.Files[2].Type)
	assert.Zero(t, found.TotalBytes())

	_, err = DiscoverFiles(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

// unreadableDirFS fails to open the named directories, as a chmod 000
// directory would for a non-root user.
type unreadableDirFS struct {
	fs.FS
	bad map[string]bool
}

func (u unreadableDirFS) Open(name string) (fs.File, error) {
	if u.bad[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return u.FS.Open(name)
}

func TestDiscoverSkipsUnreadableDirs(t *testing.T) {
	fsys := unreadableDirFS{
		FS: fstest.MapFS{
			"hostA/clients/appX/a.pvCapture": &fstest.MapFile{Data: []byte("[]")},
			"hostB/clients/appY/b.pvget":     &fstest.MapFile{},
			"hostC/clients/appZ/c.pvget":     &fstest.MapFile{},
		},
		bad: map[string]bool{"hostB": true},
	}

	root := filepath.Join("data", "run1")
	found, err := discoverFS(fsys, root)
	require.NoError(t, err)
	require.Len(t, found.Files, 2)
	assert.Equal(t, filepath.Join(root, "hostA", "clients", "appX", "a.pvCapture"), found.Files[0].Path)
	assert.Equal(t, int64(2), found.Files[0].Size)
	assert.Equal(t, filepath.Join(root, "hostC", "clients", "appZ", "c.pvget"), found.Files[1].Path)
	assert.Equal(t, []string{filepath.Join(root, "hostB")}, found.Unreadable)

	fsys.bad = map[string]bool{".": true}
	_, err = discoverFS(fsys, root)
	assert.ErrorIs(t, err, fs.ErrPermission)
}
