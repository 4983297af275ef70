package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

func sampleRun(t *testing.T) *analysis.StressTest {
	t.Helper()
	st := analysis.NewStressTest("run1", "/data/run1")

	c, err := st.GetClient("appX", "hostA", types.RoleClient)
	require.NoError(t, err)
	var samples []types.Sample
	for i := 0; i < 30; i++ {
		samples = append(samples, types.Sample{Timestamp: 1000 + float64(i), Value: float64(i + 1)})
	}
	c.AddFile("PV:ONE", types.FileTypePVCapture, samples)
	c.AddFile("PV:TWO", types.FileTypePVCapture, []types.Sample{
		{Timestamp: 1000.5, Value: 1},
		{Timestamp: 1000.6, Timeout: true},
		{Timestamp: 1001.5, Value: 5},
	})
	st.RegisterFile(analysis.FileInfo{Path: "/data/run1/a", Type: types.FileTypePVCapture, NumLines: 32, NumSamples: 30})
	st.RegisterFile(analysis.FileInfo{Path: "/data/run1/b", Type: types.FileTypePVCapture, NumLines: 5, NumSamples: 3, NumTimeouts: 1, Repaired: true})

	srv, err := st.GetClient("ioc", "hostS", types.RoleServer)
	require.NoError(t, err)
	srv.AddFile("PV:ONE", types.FileTypePVGet, samples[:3])

	st.Analyze()
	return st
}

func TestWriteLevels(t *testing.T) {
	st := sampleRun(t)

	render := func(level int) string {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, st, Options{Level: level, ShowSeconds: 20}))
		return buf.String()
	}

	level1 := render(1)
	assert.Contains(t, level1, "TestName: run1")
	assert.Contains(t, level1, "Start:    1990-01-01 00:16:40.000")
	assert.Contains(t, level1, "1 clients")
	assert.NotContains(t, level1, "appX")
	assert.NotContains(t, level1, "Servers")
	assert.Contains(t, level1, "File types")

	level2 := render(2)
	assert.Contains(t, level2, "    appX                                2          33         5           1\n")
	assert.Contains(t, level2, "    Total                               2          33         5           1\n")
	assert.Contains(t, level2, "Servers")
	assert.Contains(t, level2, "ioc")
	assert.NotContains(t, level2, "PV:ONE")

	level3 := render(3)
	assert.Contains(t, level3, "        PV:TWO                          1           3         5           1\n")
	assert.NotContains(t, level3, "ValueRates")

	level4 := render(4)
	assert.Contains(t, level4, "ValueRates: First 20 seconds")
	assert.Contains(t, level4, "ValueRates: First 2 seconds")
	assert.Contains(t, level4, "[   2,    1]")
	assert.Contains(t, level4, "MissedValueRates")
	assert.Contains(t, level4, "TimeoutRates")
}

func TestWriteEmptyRun(t *testing.T) {
	st := analysis.NewStressTest("empty", "/data/empty")
	st.Analyze()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st, DefaultOptions()))
	assert.Contains(t, buf.String(), "No samples collected")
	assert.NotContains(t, buf.String(), "File types")
}

func TestJSONExport(t *testing.T) {
	st := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, st, true))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"summary\""))

	export, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, st.Summary(), export.Summary)
	assert.Equal(t, st.FileTypeTotals(), export.FileTypes)
	assert.Equal(t, st.Rate, export.Rate)
	assert.Equal(t, st.TimeoutRate, export.TimeoutRate)
	assert.NotEmpty(t, export.TimeoutRate)
	require.Len(t, export.Channels, 2)
	assert.Equal(t, "PV:ONE", export.Channels[0].PV)
	assert.Equal(t, st.Clients["appX"].PVs["PV:TWO"].MissRate, export.Channels[1].MissRate)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, st, false))
	assert.NotContains(t, buf.String(), "channels")
}
