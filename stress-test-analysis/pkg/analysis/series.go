// =============================================================================
// pkg/analysis/series.go - Per-Second Series
// =============================================================================

package analysis

import (
	"sort"
)

// Series maps an integer second past the EPICS epoch to a count.
type Series map[int64]int64

// Get returns the count for sec, or 0 when sec has no entry.
func (s Series) Get(sec int64) int64 {
	return s[sec]
}

// Seconds returns the keys of s in ascending order.
func (s Series) Seconds() []int64 {
	secs := make([]int64, 0, len(s))
	for sec := range s {
		secs = append(secs, sec)
	}
	sort.Slice(secs, func(i, j int) bool { return secs[i] < secs[j] })
	return secs
}

// Sum returns the total over all seconds.
func (s Series) Sum() int64 {
	var total int64
	for _, n := range s {
		total += n
	}
	return total
}

// Max returns the largest per-second count.
func (s Series) Max() int64 {
	var max int64
	for _, n := range s {
		if n > max {
			max = n
		}
	}
	return max
}

// Add sums other into s. Seconds missing from either side count as 0.
func (s Series) Add(other Series) {
	for sec, n := range other {
		s[sec] += n
	}
}

// Clone returns a copy of s.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	for sec, n := range s {
		out[sec] = n
	}
	return out
}

// Span returns the first and last second of s. ok is false for an empty series.
func (s Series) Span() (first, last int64, ok bool) {
	for sec := range s {
		if !ok || sec < first {
			first = sec
		}
		if !ok || sec > last {
			last = sec
		}
		ok = true
	}
	return first, last, ok
}
