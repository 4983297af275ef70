// =============================================================================
// workflow.go - Analysis Workflow Orchestration
// =============================================================================
//
// The workflow runs the phases in order:
//
//	DISCOVERING  list capture files under the run root
//	INGESTING    decode files into the analysis graph (repairing as needed)
//	ANALYZING    compute per-PV series and roll them up
//	REPORTING    write the text report and the optional JSON export
//	STORING      save the run to the result store and read it back
//	COMPLETE
//
// Cancellation is honoured between capture files. A cancelled run stops in
// INGESTING and produces no report.
//
// =============================================================================

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/ingest"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/report"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/stats"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/store"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// Workflow drives one analysis of one run.
type Workflow struct {
	config *Config
	logger interfaces.Logger
	stats  *stats.IngestStats

	// out receives the text report
	out io.Writer

	// store is nil when no backend is configured
	store interfaces.ResultStore

	phase types.Phase
	run   *analysis.StressTest
}

// NewWorkflow creates a workflow and opens the result store, if configured.
func NewWorkflow(config *Config, logger interfaces.Logger, out io.Writer) (*Workflow, error) {
	w := &Workflow{
		config: config,
		logger: logger,
		stats:  stats.NewIngestStats(),
		out:    out,
	}

	if config.Store.Backend != types.StoreBackendNone {
		resultStore, err := store.Open(config.StoreSettings(), logger.WithScope("STORE"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open result store")
		}
		w.store = resultStore
	}
	return w, nil
}

// Run executes every phase. Per-file problems are logged and counted, never
// returned; only discovery failures, cancellation, output failures and
// store failures end the run early.
func (w *Workflow) Run(ctx context.Context) error {
	ingester := ingest.NewIngester(w.config.IngestConfig(), w.logger.WithScope("INGEST"), w.stats)

	w.setPhase(types.PhaseDiscovering)
	discovery, err := ingester.Discover()
	if err != nil {
		return errors.Wrapf(err, "failed to discover capture files under %s", w.config.Run.Dir)
	}

	w.setPhase(types.PhaseIngesting)
	run, err := ingester.Ingest(ctx, discovery)
	if err != nil {
		return err
	}
	w.run = run

	w.setPhase(types.PhaseAnalyzing)
	w.analyze()
	w.stats.LogSummary(w.logger)

	w.setPhase(types.PhaseReporting)
	if err := report.Write(w.out, run, w.config.ReportOptions()); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	if w.config.Report.JSONFile != "" {
		if err := w.writeJSON(); err != nil {
			return err
		}
	}

	if w.store != nil {
		w.setPhase(types.PhaseStoring)
		if err := w.saveRun(); err != nil {
			return err
		}
	}

	w.setPhase(types.PhaseComplete)
	return nil
}

func (w *Workflow) setPhase(phase types.Phase) {
	w.phase = phase
	w.logger.Info("Phase: %s", phase)
}

func (w *Workflow) analyze() {
	logger := w.logger.WithScope("ANALYZE")

	started := time.Now()
	w.run.Analyze()
	w.stats.SetAnalyzeTime(time.Since(started))
	w.stats.AddDuplicates(ingest.CountDuplicates(w.run))

	logger.Info("Analysed %d clients (%d PVs) and %d servers in %s",
		len(w.run.Clients), w.run.NumClientPVs(), len(w.run.Servers),
		helpers.FormatDuration(time.Since(started)))
	if !w.run.HasData() {
		logger.Warn("Run %s has no client samples", w.run.Name)
	}
}

func (w *Workflow) writeJSON() error {
	path := w.config.Report.JSONFile
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := report.WriteJSON(f, w.run, w.config.Report.JSONChannels); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	w.logger.Info("JSON export written to %s", path)
	return nil
}

// saveRun saves the run and reads the summary back to verify it.
func (w *Workflow) saveRun() error {
	logger := w.logger.WithScope("STORE")

	if err := w.store.SaveRun(w.run); err != nil {
		return errors.Wrap(err, "failed to save run")
	}

	stored, found, err := w.store.LoadRunSummary(w.run.Name)
	if err != nil {
		return errors.Wrap(err, "failed to verify saved run")
	}
	if !found {
		return errors.Errorf("run %s not found in %s after save", w.run.Name, w.store.Path())
	}

	want := w.run.Summary()
	if stored.NumSamples != want.NumSamples || stored.NumMissed != want.NumMissed ||
		stored.NumTimeouts != want.NumTimeouts || len(stored.Clients) != len(want.Clients) {
		return errors.Errorf("run %s read back from %s does not match: %d/%d/%d samples/missed/timeouts, want %d/%d/%d",
			w.run.Name, w.store.Path(),
			stored.NumSamples, stored.NumMissed, stored.NumTimeouts,
			want.NumSamples, want.NumMissed, want.NumTimeouts)
	}
	logger.Info("Verified run %s in %s", w.run.Name, w.store.Path())
	return nil
}

// Phase returns the phase the workflow reached.
func (w *Workflow) Phase() types.Phase {
	return w.phase
}

// Result returns the analysed run, or nil before INGESTING completes.
func (w *Workflow) Result() *analysis.StressTest {
	return w.run
}

// Stats returns the ingestion statistics.
func (w *Workflow) Stats() *stats.IngestStats {
	return w.stats
}

// Close releases the result store.
func (w *Workflow) Close() {
	if w.store != nil {
		w.store.Close()
		w.store = nil
	}
}
