package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedCapture = `[
    [ [ 1559217327, 738206558], 8349 ],
    [ [ 1559217327, 744054279], 8350 ]
]
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDecodePVCapture(t *testing.T) {
	records, err := DecodePVCapture([]byte(wellFormedCapture))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{Sec: 1559217327, Nsec: 738206558, HasTimestamp: true, Value: 8349}, records[0])
	assert.Equal(t, Record{Sec: 1559217327, Nsec: 744054279, HasTimestamp: true, Value: 8350}, records[1])
}

func TestDecodePVCaptureTimeouts(t *testing.T) {
	records, err := DecodePVCapture([]byte(`[[[10, 5], 1], [[11, 0], null], [[null, null], null]]`))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.True(t, records[1].Timeout)
	assert.True(t, records[1].HasTimestamp)
	assert.True(t, records[2].Timeout)
	assert.False(t, records[2].HasTimestamp)
}

func TestDecodePVCaptureRejectsBadEntries(t *testing.T) {
	for name, doc := range map[string]string{
		"missing value":       `[[[10, 5]]]`,
		"value without ts":    `[[[null, null], 4]]`,
		"half a timestamp":    `[[[10, null], 4]]`,
		"string value":        `[[[10, 5], "x"]]`,
		"not an array at all": `{"a": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePVCapture([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPlanRepair(t *testing.T) {
	t.Run("dangling comma", func(t *testing.T) {
		raw := []byte("[\n[[1, 2], 3],\n[[1, 3], 4],\n")
		action, ok := PlanRepair(raw)
		require.True(t, ok)
		assert.Equal(t, raw, action.Original)
		assert.Equal(t, "[\n[[1, 2], 3],\n[[1, 3], 4]\n]\n", string(action.Corrected))
	})

	t.Run("well formed file is left alone", func(t *testing.T) {
		_, ok := PlanRepair([]byte(wellFormedCapture))
		assert.False(t, ok)
	})

	t.Run("empty file", func(t *testing.T) {
		_, ok := PlanRepair(nil)
		assert.False(t, ok)
	})
}

func TestReadPVCaptureFileRepairRoundTrip(t *testing.T) {
	dir := t.TempDir()
	corrupt := "[[[1559217327, 738206558], 8349],[[1559217327, 744054279], 8350],"
	path := writeFile(t, dir, "chanY.pvCapture", corrupt)

	f, err := ReadPVCaptureFile(path)
	require.NoError(t, err)
	assert.True(t, f.Repaired)

	want, err := DecodePVCapture([]byte(wellFormedCapture))
	require.NoError(t, err)
	assert.Equal(t, want, f.Records)

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(backup))

	// The rewritten file is valid, so a second read does not repair again.
	again, err := ReadPVCaptureFile(path)
	require.NoError(t, err)
	assert.False(t, again.Repaired)
	assert.Equal(t, want, again.Records)
}

func TestApplyRepairWriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	corrupt := "[[[1, 2], 3],\n"
	path := writeFile(t, dir, "chanY.pvCapture", corrupt)
	// a directory in the staging slot makes the write fail
	require.NoError(t, os.MkdirAll(filepath.Join(path+repairSuffix, "busy"), 0755))

	_, err := ReadPVCaptureFile(path)
	var malformed *MalformedCaptureFileError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Error(), "failed to write repaired")

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(onDisk))
	assert.NoFileExists(t, path+BackupSuffix)
}

func TestApplyRepairLeavesNoStagedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chanY.pvCapture", "[[[1, 2], 3],\n")

	action, ok := PlanRepair([]byte("[[[1, 2], 3],\n"))
	require.True(t, ok)
	require.NoError(t, ApplyRepair(path, action))

	assert.NoFileExists(t, path+repairSuffix)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[[[1, 2], 3]\n]\n", string(onDisk))
}

func TestReadPVCaptureFileUnrepairable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chanY.pvCapture", "[[[1, 2], 3], [[1, 2")

	_, err := ReadPVCaptureFile(path)
	require.Error(t, err)

	var malformed *MalformedCaptureFileError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, path, malformed.Path)
	assert.Equal(t, FileTypePVCapture, malformed.Type)

	_, statErr := os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(statErr), "no backup for a file that was never repaired")
}

func TestReadPVCaptureFileStillMalformedAfterRepair(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chanY.pvCapture", "[[[1, 2], 3], [[1, x], 4],\n")

	_, err := ReadPVCaptureFile(path)
	var malformed *MalformedCaptureFileError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Error(), "still malformed after repair")
}

func TestReadPVCaptureZstFile(t *testing.T) {
	dir := t.TempDir()
	corrupt := "[[[10, 0], 1],\n[[10, 500000000], 2],\n"
	compressed, err := CompressPVCapture([]byte(corrupt))
	require.NoError(t, err)
	path := filepath.Join(dir, "chanY.pvCapture.zst")
	require.NoError(t, os.WriteFile(path, compressed, 0644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FileTypePVCaptureZst, f.Type)
	assert.True(t, f.Repaired)
	assert.Len(t, f.Records, 2)

	// Archives are repaired in memory only.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, compressed, onDisk)
	_, statErr := os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadPVCaptureZstFileNotCompressed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chanY.pvCapture.zst", wellFormedCapture)

	_, err := ReadFile(path)
	var malformed *MalformedCaptureFileError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, FileTypePVCaptureZst, malformed.Type)
}
