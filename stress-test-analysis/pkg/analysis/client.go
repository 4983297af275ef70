// =============================================================================
// pkg/analysis/client.go - Per-Client Roll-up
// =============================================================================
//
// A Client is one test application (client or server role) running on one
// host. Its series are per-second sums over its PVs, and NumPVs[sec] counts
// the PVs whose series cover that second. Consumers divide by NumPVs to get a
// per-PV rate.
//
// =============================================================================

package analysis

import (
	"sort"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// Client aggregates the PVs captured by one test application.
type Client struct {
	Name     string
	HostName string
	Role     types.Role

	// FileType is the format of the first file added. Files of other formats
	// are still accepted.
	FileType types.FileType
	NumFiles int

	PVs map[string]*PV

	// Populated by Analyze.
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

// NewClient creates an empty client.
func NewClient(name, hostName string, role types.Role) *Client {
	return &Client{
		Name:        name,
		HostName:    hostName,
		Role:        role,
		PVs:         make(map[string]*PV),
		Rate:        Series{},
		MissRate:    Series{},
		TimeoutRate: Series{},
		NumPVs:      Series{},
	}
}

// GetPV returns the named PV, creating it on first use.
func (c *Client) GetPV(name string) *PV {
	pv, ok := c.PVs[name]
	if !ok {
		pv = NewPV(name)
		c.PVs[name] = pv
	}
	return pv
}

// AddFile adds the samples read from one capture file to the named PV.
// mismatch is true when fileType differs from the client's canonical type.
func (c *Client) AddFile(pvName string, fileType types.FileType, samples []types.Sample) (mismatch bool) {
	if c.FileType == "" {
		c.FileType = fileType
	}
	mismatch = c.FileType != fileType

	c.NumFiles++
	c.GetPV(pvName).AddSamples(samples)
	return mismatch
}

// PVNames returns the PV names in sorted order.
func (c *Client) PVNames() []string {
	names := make([]string, 0, len(c.PVs))
	for name := range c.PVs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasData reports whether any PV had samples at the last Analyze.
func (c *Client) HasData() bool {
	return c.hasData
}

// Analyze analyses every PV and rolls the results up into the client.
func (c *Client) Analyze() {
	c.Rate = Series{}
	c.MissRate = Series{}
	c.TimeoutRate = Series{}
	c.NumPVs = Series{}
	c.NumSamples = 0
	c.NumMissed = 0
	c.NumTimeouts = 0
	c.StartTime = 0
	c.EndTime = 0
	c.hasData = false

	for _, name := range c.PVNames() {
		pv := c.PVs[name]
		pv.Analyze()

		c.NumSamples += int64(pv.NumSamples())
		c.NumMissed += pv.NumMissed
		c.NumTimeouts += pv.NumTimeouts

		if !pv.HasData() {
			continue
		}
		c.extendBounds(pv.StartTime, pv.EndTime)

		c.Rate.Add(pv.Rate)
		c.MissRate.Add(pv.MissRate)
		c.TimeoutRate.Add(pv.TimeoutRate)
		for sec := range pv.Rate {
			c.NumPVs[sec]++
		}
	}
}

func (c *Client) extendBounds(start, end float64) {
	if !c.hasData || start < c.StartTime {
		c.StartTime = start
	}
	if !c.hasData || end > c.EndTime {
		c.EndTime = end
	}
	c.hasData = true
}
