package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

func TestClientAdditivity(t *testing.T) {
	c := NewClient("appX", "hostA", types.RoleClient)
	assert.False(t, c.AddFile("A", types.FileTypePVCapture, values(10.0, 0.25, 1, 2, 4, 5, 6, 9)))
	assert.False(t, c.AddFile("B", types.FileTypePVCapture, values(11.5, 0.5, 1, 3, 4, 5)))
	c.Analyze()

	a, b := c.PVs["A"], c.PVs["B"]
	assert.Equal(t, a.NumMissed+b.NumMissed, c.NumMissed)
	assert.Equal(t, a.NumTimeouts+b.NumTimeouts, c.NumTimeouts)
	assert.Equal(t, int64(10), c.NumSamples)

	seconds := Series{}
	seconds.Add(a.Rate)
	seconds.Add(b.Rate)
	for _, sec := range seconds.Seconds() {
		assert.Equal(t, a.Rate.Get(sec)+b.Rate.Get(sec), c.Rate[sec], sec)
		assert.Equal(t, a.MissRate.Get(sec)+b.MissRate.Get(sec), c.MissRate[sec], sec)
	}

	// A covers 10..11, B covers 11..13
	assert.Equal(t, Series{10: 1, 11: 2, 12: 1, 13: 1}, c.NumPVs)
	assert.Equal(t, 10.0, c.StartTime)
	assert.Equal(t, 13.0, c.EndTime)
}

func TestClientIgnoresEmptyPVForBounds(t *testing.T) {
	c := NewClient("appX", "hostA", types.RoleClient)
	c.AddFile("A", types.FileTypePVGet, values(50.0, 1, 1, 2))
	c.AddFile("Empty", types.FileTypePVGet, nil)
	c.Analyze()

	assert.True(t, c.HasData())
	assert.Equal(t, 50.0, c.StartTime)
	assert.Equal(t, 51.0, c.EndTime)
	assert.Len(t, c.PVs, 2)
}

func TestClientFileTypeMismatch(t *testing.T) {
	c := NewClient("appX", "hostA", types.RoleClient)
	assert.False(t, c.AddFile("A", types.FileTypePVGet, nil))
	assert.True(t, c.AddFile("B", types.FileTypePVCapture, nil))
	assert.Equal(t, types.FileTypePVGet, c.FileType)
	assert.Equal(t, 2, c.NumFiles)
}

func TestStressTestGetClient(t *testing.T) {
	st := NewStressTest("run1", "/data/run1")

	c1, err := st.GetClient("appX", "hostA", types.RoleClient)
	require.NoError(t, err)
	c2, err := st.GetClient("appX", "hostA", types.RoleClient)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	_, err = st.GetClient("appX", "hostB", types.RoleClient)
	var conflict *ClientHostConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "hostA", conflict.KnownHost)
	assert.Equal(t, "hostB", conflict.Host)

	assert.NoError(t, st.CheckHost("appX", "hostA", types.RoleClient))
	assert.NoError(t, st.CheckHost("appNew", "hostB", types.RoleClient))
	assert.NotContains(t, st.Clients, "appNew")
	require.True(t, errors.As(st.CheckHost("appX", "hostB", types.RoleClient), &conflict))

	// Servers live in their own namespace.
	srv, err := st.GetClient("appX", "hostB", types.RoleServer)
	require.NoError(t, err)
	assert.Equal(t, types.RoleServer, srv.Role)
	assert.Len(t, st.Clients, 1)
	assert.Len(t, st.Servers, 1)
}

func TestStressTestAnalyze(t *testing.T) {
	st := NewStressTest("run1", "/data/run1")

	c1, _ := st.GetClient("app1", "hostA", types.RoleClient)
	c1.AddFile("A", types.FileTypePVCapture, values(100.0, 0.5, 1, 2, 3, 7))
	c2, _ := st.GetClient("app2", "hostB", types.RoleClient)
	c2.AddFile("A", types.FileTypePVCapture, values(99.0, 1, 1, 2))
	c2.AddFile("B", types.FileTypePVCapture, []types.Sample{{Timestamp: 101.2, Timeout: true}})
	idle, _ := st.GetClient("idle", "hostC", types.RoleClient)
	idle.GetPV("nothing")
	srv, _ := st.GetClient("ioc", "hostS", types.RoleServer)
	srv.AddFile("A", types.FileTypePVCapture, values(1.0, 1, 1, 2, 3))

	st.Analyze()

	require.True(t, st.HasData())
	assert.Equal(t, 99.0, st.StartTime)
	assert.Equal(t, 101.5, st.EndTime)
	assert.Equal(t, c1.NumMissed+c2.NumMissed, st.NumMissed)
	assert.Equal(t, int64(5), st.NumMissed)
	assert.Equal(t, int64(1), st.NumTimeouts)
	assert.Equal(t, int64(7), st.NumSamples)
	assert.Equal(t, Series{99: 1, 100: 3, 101: 3}, st.Rate)
	assert.Equal(t, Series{99: 1, 100: 2, 101: 2}, st.NumPVs)

	// servers are analysed but kept out of the run totals
	assert.True(t, srv.HasData())
	assert.Equal(t, int64(3), srv.NumSamples)
	assert.Equal(t, 4, st.NumClientPVs())

	summary := st.Summary()
	assert.Equal(t, "run1", summary.Name)
	require.Len(t, summary.Clients, 3)
	assert.Equal(t, "app1", summary.Clients[0].Name)
	require.Len(t, summary.Servers, 1)
	assert.Equal(t, "ioc", summary.Servers[0].Name)
}

func TestStressTestFileTypeTotals(t *testing.T) {
	st := NewStressTest("run1", "/data/run1")
	st.RegisterFile(FileInfo{Path: "/a", Type: types.FileTypePVGet, NumLines: 10, NumSamples: 8, NumTimeouts: 1})
	st.RegisterFile(FileInfo{Path: "/b", Type: types.FileTypePVCapture, NumLines: 4, NumSamples: 2, Repaired: true})
	st.RegisterFile(FileInfo{Path: "/c", Type: types.FileTypePVGet, NumLines: 5, NumSamples: 5, NumTimeouts: 2})
	st.RegisterFile(FileInfo{Path: "/c", Type: types.FileTypePVGet, NumLines: 5, NumSamples: 5, NumTimeouts: 2})

	totals := st.FileTypeTotals()
	require.Len(t, totals, 2)
	assert.Equal(t, FileTypeTotal{
		Type: types.FileTypePVCapture, NumFiles: 1, NumLines: 4, NumSamples: 2, NumRepaired: 1,
	}, totals[0])
	assert.Equal(t, FileTypeTotal{
		Type: types.FileTypePVGet, NumFiles: 2, NumLines: 15, NumSamples: 13, NumTimeouts: 3,
	}, totals[1])
}

func TestSeries(t *testing.T) {
	s := Series{3: 1, 1: 4, 2: 0}
	assert.Equal(t, []int64{1, 2, 3}, s.Seconds())
	assert.Equal(t, int64(5), s.Sum())
	assert.Equal(t, int64(4), s.Max())
	assert.Zero(t, s.Get(99))

	_, _, ok := Series{}.Span()
	assert.False(t, ok)
}
