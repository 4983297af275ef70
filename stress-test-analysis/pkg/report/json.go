package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Export is the JSON document written for an analysed run.
type Export struct {
	Summary     analysis.RunSummary      `json:"summary"`
	FileTypes   []analysis.FileTypeTotal `json:"fileTypes"`
	Rate        analysis.Series          `json:"rate"`
	MissRate    analysis.Series          `json:"missRate"`
	TimeoutRate analysis.Series          `json:"timeoutRate"`
	NumPVs      analysis.Series          `json:"numPVs"`
	Channels    []analysis.ChannelSeries `json:"channels,omitempty"`
}

// NewExport flattens an analysed run. Per-PV series are included only when
// withChannels is set; they dominate the document size.
func NewExport(st *analysis.StressTest, withChannels bool) Export {
	e := Export{
		Summary:     st.Summary(),
		FileTypes:   st.FileTypeTotals(),
		Rate:        st.Rate,
		MissRate:    st.MissRate,
		TimeoutRate: st.TimeoutRate,
		NumPVs:      st.NumPVs,
	}
	if withChannels {
		for _, name := range st.ClientNames() {
			c := st.Clients[name]
			for _, pvName := range c.PVNames() {
				e.Channels = append(e.Channels, c.ChannelSeries(st.Name, c.PVs[pvName]))
			}
		}
	}
	return e
}

// WriteJSON writes the JSON export of an analysed run.
func WriteJSON(w io.Writer, st *analysis.StressTest, withChannels bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExport(st, withChannels))
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (Export, error) {
	var e Export
	err := json.NewDecoder(r).Decode(&e)
	return e, err
}
