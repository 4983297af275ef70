// =============================================================================
// pkg/analysis/summary.go - Flattened Results
// =============================================================================
//
// Summaries are the read-only, flattened view of an analysed run handed to the
// JSON export and the result store. Times stay in float seconds past the
// EPICS epoch.
//
// =============================================================================

package analysis

import (
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// ClientSummary is the totals of one client or server.
type ClientSummary struct {
	Name        string         `json:"name"`
	HostName    string         `json:"host"`
	Role        types.Role     `json:"role"`
	FileType    types.FileType `json:"fileType"`
	NumPVs      int            `json:"numPVs"`
	NumSamples  int64          `json:"numSamples"`
	NumMissed   int64          `json:"numMissed"`
	NumTimeouts int64          `json:"numTimeouts"`
	StartTime   float64        `json:"startTime"`
	EndTime     float64        `json:"endTime"`
}

// RunSummary is the totals of one run plus every client and server summary.
type RunSummary struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	NumFiles    int             `json:"numFiles"`
	NumPVs      int             `json:"numPVs"`
	NumSamples  int64           `json:"numSamples"`
	NumMissed   int64           `json:"numMissed"`
	NumTimeouts int64           `json:"numTimeouts"`
	StartTime   float64         `json:"startTime"`
	EndTime     float64         `json:"endTime"`
	Clients     []ClientSummary `json:"clients"`
	Servers     []ClientSummary `json:"servers"`
}

// ChannelSeries is the analysis of one PV.
type ChannelSeries struct {
	Run         string  `json:"run"`
	Client      string  `json:"client"`
	PV          string  `json:"pv"`
	NumSamples  int64   `json:"numSamples"`
	NumMissed   int64   `json:"numMissed"`
	NumTimeouts int64   `json:"numTimeouts"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Rate        Series  `json:"rate"`
	MissRate    Series  `json:"missRate"`
	TimeoutRate Series  `json:"timeoutRate"`
}

// Summary returns the totals of an analysed client.
func (c *Client) Summary() ClientSummary {
	return ClientSummary{
		Name:        c.Name,
		HostName:    c.HostName,
		Role:        c.Role,
		FileType:    c.FileType,
		NumPVs:      len(c.PVs),
		NumSamples:  c.NumSamples,
		NumMissed:   c.NumMissed,
		NumTimeouts: c.NumTimeouts,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
	}
}

// Summary returns the totals of an analysed run.
func (st *StressTest) Summary() RunSummary {
	s := RunSummary{
		Name:        st.Name,
		Path:        st.Path,
		NumFiles:    len(st.Files),
		NumPVs:      st.NumClientPVs(),
		NumSamples:  st.NumSamples,
		NumMissed:   st.NumMissed,
		NumTimeouts: st.NumTimeouts,
		StartTime:   st.StartTime,
		EndTime:     st.EndTime,
		Clients:     make([]ClientSummary, 0, len(st.Clients)),
		Servers:     make([]ClientSummary, 0, len(st.Servers)),
	}
	for _, name := range st.ClientNames() {
		s.Clients = append(s.Clients, st.Clients[name].Summary())
	}
	for _, name := range st.ServerNames() {
		s.Servers = append(s.Servers, st.Servers[name].Summary())
	}
	return s
}

// ChannelSeries returns the analysis of one PV of an analysed client.
func (c *Client) ChannelSeries(run string, pv *PV) ChannelSeries {
	return ChannelSeries{
		Run:         run,
		Client:      c.Name,
		PV:          pv.Name,
		NumSamples:  int64(pv.NumSamples()),
		NumMissed:   pv.NumMissed,
		NumTimeouts: pv.NumTimeouts,
		StartTime:   pv.StartTime,
		EndTime:     pv.EndTime,
		Rate:        pv.Rate.Clone(),
		MissRate:    pv.MissRate.Clone(),
		TimeoutRate: pv.TimeoutRate.Clone(),
	}
}
