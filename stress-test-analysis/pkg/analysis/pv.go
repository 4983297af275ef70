// =============================================================================
// pkg/analysis/pv.go - Per-PV Analysis
// =============================================================================
//
// A PV (process variable) is one named EPICS channel. The analysis turns the
// samples collected for a PV into three aligned per-second series:
//
//	Rate[sec]        samples (values and timeouts) received in that second
//	MissRate[sec]    values inferred missing from gaps in the counter sequence
//	TimeoutRate[sec] polls that timed out in that second
//
// All three share the key domain [floor(StartTime), floor(EndTime)] with no
// gaps; silent seconds are present with a count of 0.
//
// Test PVs publish a monotonically increasing counter, so a jump from value v
// to value w with w != v+1 is a gap. The gap adds (w - v + 1) to the missed
// count of the second in which w arrived.
//
// =============================================================================

package analysis

import (
	"math"
	"sort"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// PV holds the samples collected for one channel and their analysis.
type PV struct {
	Name string

	// samples is keyed by timestamp; a later sample with the same timestamp
	// replaces the earlier one.
	samples map[float64]types.Sample

	// NumDuplicates counts samples that replaced an earlier sample with the
	// same timestamp.
	NumDuplicates int

	// Populated by Analyze.
	Rate        Series
	MissRate    Series
	TimeoutRate Series
	NumMissed   int64
	NumTimeouts int64
	StartTime   float64
	EndTime     float64
	hasData     bool
}

// NewPV creates an empty PV.
func NewPV(name string) *PV {
	return &PV{
		Name:        name,
		samples:     make(map[float64]types.Sample),
		Rate:        Series{},
		MissRate:    Series{},
		TimeoutRate: Series{},
	}
}

// AddSamples records samples for the PV.
func (pv *PV) AddSamples(samples []types.Sample) {
	for _, s := range samples {
		if _, exists := pv.samples[s.Timestamp]; exists {
			pv.NumDuplicates++
		}
		pv.samples[s.Timestamp] = s
	}
}

// NumSamples returns the number of distinct timestamps collected.
func (pv *PV) NumSamples() int {
	return len(pv.samples)
}

// HasData reports whether the last Analyze saw at least one sample.
func (pv *PV) HasData() bool {
	return pv.hasData
}

// Samples returns the collected samples in timestamp order.
func (pv *PV) Samples() []types.Sample {
	out := make([]types.Sample, 0, len(pv.samples))
	for _, s := range pv.samples {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Analyze recomputes the per-second series and totals from the collected
// samples. It never fails; a PV without samples ends up with empty series.
func (pv *PV) Analyze() {
	pv.Rate = Series{}
	pv.MissRate = Series{}
	pv.TimeoutRate = Series{}
	pv.NumMissed = 0
	pv.NumTimeouts = 0
	pv.StartTime = 0
	pv.EndTime = 0
	pv.hasData = false

	samples := pv.Samples()
	if len(samples) == 0 {
		return
	}

	pv.hasData = true
	pv.StartTime = samples[0].Timestamp
	pv.EndTime = samples[0].Timestamp

	var (
		priorSec   = secondOf(samples[0].Timestamp)
		priorValue float64
		havePrior  bool

		count, missed, timeouts int64
	)

	for _, s := range samples {
		sec := secondOf(s.Timestamp)
		if sec != priorSec {
			pv.closeBucket(priorSec, count, missed, timeouts)
			count, missed, timeouts = 0, 0, 0

			for silent := priorSec + 1; silent < sec; silent++ {
				pv.closeBucket(silent, 0, 0, 0)
			}
			priorSec = sec
		}
		if s.Timestamp > pv.EndTime {
			pv.EndTime = s.Timestamp
		}

		count++
		if s.Timeout {
			timeouts++
			continue
		}
		if havePrior && priorValue+1 != s.Value {
			missed += int64(s.Value - priorValue + 1)
		}
		priorValue = s.Value
		havePrior = true
	}

	pv.closeBucket(priorSec, count, missed, timeouts)
}

func (pv *PV) closeBucket(sec, count, missed, timeouts int64) {
	pv.Rate[sec] = count
	pv.MissRate[sec] = missed
	pv.TimeoutRate[sec] = timeouts
	pv.NumMissed += missed
	pv.NumTimeouts += timeouts
}

// secondOf returns the integer second containing ts.
func secondOf(ts float64) int64 {
	return int64(math.Floor(ts))
}
