// =============================================================================
// pkg/analysis/stresstest.go - Whole-Run Roll-up
// =============================================================================
//
// A StressTest is one run rooted at one directory. Clients roll up into the
// run totals; servers are analysed and reported on their own but are not
// folded into the run totals, since server side captures count the same
// updates a second time.
//
// The run also keeps a flat registry of every ingested file, used for the
// "totals by file type" summary.
//
// =============================================================================

package analysis

import (
	"fmt"
	"sort"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// ClientHostConflictError is returned when a client name is seen under two hosts.
type ClientHostConflictError struct {
	Client    string
	Role      types.Role
	KnownHost string
	Host      string
}

func (e *ClientHostConflictError) Error() string {
	return fmt.Sprintf("%s %s already seen on host %s, not %s", e.Role, e.Client, e.KnownHost, e.Host)
}

// FileInfo describes one ingested capture file.
type FileInfo struct {
	Path        string
	Type        types.FileType
	NumLines    int
	NumSamples  int
	NumTimeouts int
	Repaired    bool
}

// FileTypeTotal sums FileInfo over all files of one type.
type FileTypeTotal struct {
	Type        types.FileType `json:"type"`
	NumFiles    int            `json:"numFiles"`
	NumLines    int64          `json:"numLines"`
	NumSamples  int64          `json:"numSamples"`
	NumTimeouts int64          `json:"numTimeouts"`
	NumRepaired int            `json:"numRepaired"`
}

// StressTest aggregates every client and server of one run.
type StressTest struct {
	Name string
	Path string

	Clients map[string]*Client
	Servers map[string]*Client
	Files   map[string]FileInfo

	// Populated by Analyze, over clients only.
	Rate        Series
	MissRate    Series
	TimeoutRate Series
	NumPVs      Series
	NumSamples  int64
	NumMissed   int64
	NumTimeouts int64
	StartTime   float64
	EndTime     float64
	hasData     bool
}

// NewStressTest creates an empty run.
func NewStressTest(name, path string) *StressTest {
	return &StressTest{
		Name:        name,
		Path:        path,
		Clients:     make(map[string]*Client),
		Servers:     make(map[string]*Client),
		Files:       make(map[string]FileInfo),
		Rate:        Series{},
		MissRate:    Series{},
		TimeoutRate: Series{},
		NumPVs:      Series{},
	}
}

func (st *StressTest) apps(role types.Role) map[string]*Client {
	if role == types.RoleServer {
		return st.Servers
	}
	return st.Clients
}

// CheckHost reports a ClientHostConflictError when name is already
// registered under a host other than hostName. It creates nothing.
func (st *StressTest) CheckHost(name, hostName string, role types.Role) error {
	if c, ok := st.apps(role)[name]; ok && c.HostName != hostName {
		return &ClientHostConflictError{Client: name, Role: role, KnownHost: c.HostName, Host: hostName}
	}
	return nil
}

// GetClient returns the named client or server, creating it on first use.
// A name already registered under a different host is a conflict.
func (st *StressTest) GetClient(name, hostName string, role types.Role) (*Client, error) {
	if err := st.CheckHost(name, hostName, role); err != nil {
		return nil, err
	}
	apps := st.apps(role)
	if c, ok := apps[name]; ok {
		return c, nil
	}
	c := NewClient(name, hostName, role)
	apps[name] = c
	return c, nil
}

// RegisterFile records an ingested file. Registering the same path again
// replaces the earlier entry.
func (st *StressTest) RegisterFile(info FileInfo) {
	st.Files[info.Path] = info
}

// FileTypeTotals sums the file registry by file type, ordered by type name.
func (st *StressTest) FileTypeTotals() []FileTypeTotal {
	byType := make(map[types.FileType]*FileTypeTotal)
	for _, f := range st.Files {
		t, ok := byType[f.Type]
		if !ok {
			t = &FileTypeTotal{Type: f.Type}
			byType[f.Type] = t
		}
		t.NumFiles++
		t.NumLines += int64(f.NumLines)
		t.NumSamples += int64(f.NumSamples)
		t.NumTimeouts += int64(f.NumTimeouts)
		if f.Repaired {
			t.NumRepaired++
		}
	}

	totals := make([]FileTypeTotal, 0, len(byType))
	for _, t := range byType {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Type < totals[j].Type })
	return totals
}

// ClientNames returns client names in sorted order.
func (st *StressTest) ClientNames() []string {
	return sortedNames(st.Clients)
}

// ServerNames returns server names in sorted order.
func (st *StressTest) ServerNames() []string {
	return sortedNames(st.Servers)
}

func sortedNames(apps map[string]*Client) []string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasData reports whether any client had samples at the last Analyze.
func (st *StressTest) HasData() bool {
	return st.hasData
}

// Analyze analyses every client and server and rolls the clients up into the
// run totals.
func (st *StressTest) Analyze() {
	st.Rate = Series{}
	st.MissRate = Series{}
	st.TimeoutRate = Series{}
	st.NumPVs = Series{}
	st.NumSamples = 0
	st.NumMissed = 0
	st.NumTimeouts = 0
	st.StartTime = 0
	st.EndTime = 0
	st.hasData = false

	for _, name := range st.ServerNames() {
		st.Servers[name].Analyze()
	}

	for _, name := range st.ClientNames() {
		c := st.Clients[name]
		c.Analyze()

		st.NumSamples += c.NumSamples
		st.NumMissed += c.NumMissed
		st.NumTimeouts += c.NumTimeouts

		if !c.HasData() {
			continue
		}
		if !st.hasData || c.StartTime < st.StartTime {
			st.StartTime = c.StartTime
		}
		if !st.hasData || c.EndTime > st.EndTime {
			st.EndTime = c.EndTime
		}
		st.hasData = true

		st.Rate.Add(c.Rate)
		st.MissRate.Add(c.MissRate)
		st.TimeoutRate.Add(c.TimeoutRate)
		st.NumPVs.Add(c.NumPVs)
	}
}

// NumClientPVs returns the number of PVs over all clients.
func (st *StressTest) NumClientPVs() int {
	n := 0
	for _, c := range st.Clients {
		n += len(c.PVs)
	}
	return n
}
