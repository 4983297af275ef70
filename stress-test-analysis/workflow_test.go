package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/logging"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/report"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

func buildRunDir(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "run3")
	files := map[string]string{
		"hostA/clients/appX/chan1.pvCapture": "[[[100, 0], 1], [[100, 500000000], 2], [[102, 0], 5]]",
		"hostA/clients/appX/chan2.pvget":     "chan2 1990-01-01 00:01:40.250 7\nTimeout\n",
		"hostB/servers/ioc/chan1.pvCapture":  "[[[100, 0], 1]]",
		"hostA/clients/appY/bad.pvCapture":   "[[[1, 2], 3], [[1, 2",
	}
	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return root
}

func TestWorkflowRun(t *testing.T) {
	root := buildRunDir(t)
	jsonPath := filepath.Join(t.TempDir(), "out", "run3.json")

	config := DefaultConfig()
	config.Run.Dir = root
	config.Report.Level = 3
	config.Report.JSONFile = jsonPath
	require.NoError(t, config.Validate())

	var logOut, errOut, reportOut bytes.Buffer
	workflow, err := NewWorkflow(config, logging.NewWriterLogger(&logOut, &errOut), &reportOut)
	require.NoError(t, err)
	defer workflow.Close()

	require.NoError(t, workflow.Run(context.Background()))
	assert.Equal(t, types.PhaseComplete, workflow.Phase())

	run := workflow.Result()
	require.NotNil(t, run)
	assert.Equal(t, "run3", run.Name)
	// chan1: 3 samples with a gap 2 -> 5; chan2: 1 value and 1 timeout
	assert.Equal(t, int64(5), run.NumSamples)
	assert.Equal(t, int64(4), run.NumMissed)
	assert.Equal(t, int64(1), run.NumTimeouts)
	assert.Equal(t, 1, workflow.Stats().ParseErrors)

	assert.Contains(t, reportOut.String(), "TestName: run3")
	assert.Contains(t, reportOut.String(), "chan2")
	assert.Contains(t, errOut.String(), "bad.pvCapture")
	assert.Contains(t, logOut.String(), "Phase: ANALYZING")
	assert.Contains(t, logOut.String(), "[ANALYZE]")
	assert.NotContains(t, logOut.String(), "Phase: STORING")

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	export, err := report.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, run.Summary(), export.Summary)
	assert.Empty(t, export.Channels)
}

func TestWorkflowCancelled(t *testing.T) {
	config := DefaultConfig()
	config.Run.Dir = buildRunDir(t)
	require.NoError(t, config.Validate())

	var reportOut bytes.Buffer
	workflow, err := NewWorkflow(config, logging.NewWriterLogger(&bytes.Buffer{}, &bytes.Buffer{}), &reportOut)
	require.NoError(t, err)
	defer workflow.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = workflow.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.PhaseIngesting, workflow.Phase())
	assert.Nil(t, workflow.Result())
	assert.Zero(t, reportOut.Len())
}

func TestRunDryRun(t *testing.T) {
	config := DefaultConfig()
	config.Run.Dir = t.TempDir()
	config.DryRun = true
	require.NoError(t, config.Validate())

	var logOut bytes.Buffer
	code := run(config, logging.NewWriterLogger(&logOut, &bytes.Buffer{}))
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, logOut.String(), "DRY RUN COMPLETE")
	assert.Contains(t, logOut.String(), "Backend:             none")
}

func TestRunDryRunReportsStore(t *testing.T) {
	config := DefaultConfig()
	config.Run.Dir = t.TempDir()
	config.Store.Backend = types.StoreBackendMDBX
	config.Store.Path = filepath.Join(t.TempDir(), "results.mdbx")
	config.DryRun = true
	require.NoError(t, config.Validate())

	var logOut bytes.Buffer
	assert.Equal(t, ExitSuccess, run(config, logging.NewWriterLogger(&logOut, &bytes.Buffer{})))
	assert.Contains(t, logOut.String(), "Result store will be created")
}
