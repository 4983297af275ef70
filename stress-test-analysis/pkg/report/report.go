// =============================================================================
// pkg/report/report.go - Text Report
// =============================================================================
//
// The text report prints an analysed StressTest at one of four levels:
//
//	1  run totals only
//	2  + one row per client and per server
//	3  + one row per PV
//	4  + the first ShowSeconds seconds of each PV's rate series
//
// Every level ends with the totals by file type.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/helpers/capture"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// Options controls the text report.
type Options struct {
	// Level is 1..4, see the package comment
	Level int

	// ShowSeconds is the number of leading seconds printed per series at level 4
	ShowSeconds int
}

// DefaultOptions returns the default report options.
func DefaultOptions() Options {
	return Options{Level: types.DefaultReportLevel, ShowSeconds: types.DefaultShowSeconds}
}

const (
	appRowFormat = "    %-30s %6d %11d %9d %11d\n"
	pvRowFormat  = "        %-26s %6d %11d %9d %11d\n"
)

// Write renders the text report for an analysed run.
func Write(w io.Writer, st *analysis.StressTest, opts Options) error {
	r := &renderer{w: w, opts: opts}

	r.printf("\nStressTest Report:\n")
	r.printf("TestName: %s\n", st.Name)
	r.printf("TestPath: %s\n", st.Path)
	if st.HasData() {
		start := capture.EPICSTime(st.StartTime)
		end := capture.EPICSTime(st.EndTime)
		r.printf("Start:    %s\n", helpers.FormatTimestamp(start))
		r.printf("End:      %s\n", helpers.FormatTimestamp(end))
		r.printf("Duration: %s\n", helpers.FormatDuration(end.Sub(start).Truncate(time.Millisecond)))
	} else {
		r.printf("No samples collected\n")
	}

	r.apps("Clients", st.Clients, st.ClientNames())
	total := "Total"
	if opts.Level < 2 {
		total = fmt.Sprintf("%d clients", len(st.Clients))
	}
	r.printf(appRowFormat, total, st.NumClientPVs(), st.NumSamples, st.NumMissed, st.NumTimeouts)
	if st.NumSamples > 0 {
		r.printf("    Missed: %s  Timeouts: %s\n",
			helpers.FormatPercent(helpers.Percent(st.NumMissed, st.NumSamples+st.NumMissed), 2),
			helpers.FormatPercent(helpers.Percent(st.NumTimeouts, st.NumSamples), 2))
		r.printf("    Peak:   %d updates/s\n", st.Rate.Max())
	}

	if len(st.Servers) > 0 && opts.Level >= 2 {
		r.apps("Servers", st.Servers, st.ServerNames())
	}

	r.fileTypes(st.FileTypeTotals())
	return r.err
}

type renderer struct {
	w    io.Writer
	opts Options
	err  error
}

func (r *renderer) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) apps(title string, apps map[string]*analysis.Client, names []string) {
	if len(apps) == 0 {
		return
	}
	r.printf("%-34s NumPVs NumTsValues NumMissed NumTimeouts\n", title)
	if r.opts.Level < 2 {
		return
	}

	for _, name := range names {
		c := apps[name]
		r.printf(appRowFormat, name, len(c.PVs), c.NumSamples, c.NumMissed, c.NumTimeouts)
		if c.HostName != "" && r.opts.Level >= 3 {
			r.printf("        host %s, %s files\n", c.HostName, c.FileType)
		}
		if r.opts.Level < 3 {
			continue
		}
		for _, pvName := range c.PVNames() {
			pv := c.PVs[pvName]
			r.printf(pvRowFormat, pvName, 1, pv.NumSamples(), pv.NumMissed, pv.NumTimeouts)
			if r.opts.Level >= 4 {
				r.series("ValueRates", pv.Rate)
				r.series("MissedValueRates", pv.MissRate)
				r.series("TimeoutRates", pv.TimeoutRate)
			}
		}
	}
}

// series prints the first ShowSeconds entries of s in time order.
func (r *renderer) series(label string, s analysis.Series) {
	secs := s.Seconds()
	n := r.opts.ShowSeconds
	if n <= 0 || n > len(secs) {
		n = len(secs)
	}

	counts := make([]string, n)
	for i, sec := range secs[:n] {
		counts[i] = fmt.Sprintf("%4d", s[sec])
	}
	r.printf("        %s: First %d seconds\n", label, n)
	r.printf("        [%s]\n", strings.Join(counts, ", "))
}

func (r *renderer) fileTypes(totals []analysis.FileTypeTotal) {
	if len(totals) == 0 {
		return
	}
	r.printf("File types                         NumFiles    NumLines  NumSamples NumTimeouts NumRepaired\n")
	for _, t := range totals {
		r.printf("    %-30s %8d %11d %11d %11d %11d\n",
			t.Type, t.NumFiles, t.NumLines, t.NumSamples, t.NumTimeouts, t.NumRepaired)
	}
}
