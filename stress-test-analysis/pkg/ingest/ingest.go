// =============================================================================
// pkg/ingest/ingest.go - Capture File Ingestion
// =============================================================================
//
// This package walks a run directory and feeds every capture file into the
// analysis graph.
//
// INGESTION WORKFLOW:
//
//	1. Discover capture files under the run root (sorted, deterministic)
//	2. Decode each path into run/host/role/app/channel
//	3. Read and decode the file (repairing pvCapture files if needed)
//	4. Attribute the samples to the client (or server) PV
//	5. Register the file in the run's file registry
//
// ERROR HANDLING:
//
//	Every per-file failure is logged as a single line and counted; the walk
//	always continues with the next file.
//
//	- InvalidPathError:          skip file
//	- MalformedCaptureFileError: skip file
//	- ClientHostConflictError:   skip file
//	- File type mismatch:        warn, ingest anyway
//
// CANCELLATION:
//
//	The context is checked between files. A cancelled run returns the
//	partially populated graph together with the context error.
//
// =============================================================================

package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/helpers/capture"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/stats"
)

// =============================================================================
// Ingestion Configuration
// =============================================================================

// Config holds configuration for the ingestion phase.
type Config struct {
	// RunDir is the run root: <RunDir>/<host>/{clients|servers}/<app>/<file>
	RunDir string

	// RunName overrides the run name shown in reports (default: base of RunDir)
	RunName string

	// SkipServers ignores everything below servers/ directories
	SkipServers bool

	// ProgressInterval logs progress every N files (0 disables)
	ProgressInterval int
}

// =============================================================================
// Ingester
// =============================================================================

// Ingester reads capture files into a StressTest.
//
// LIFECYCLE:
//
//	ingester := NewIngester(config, logger, stats)
//	run, err := ingester.Run(ctx)
type Ingester struct {
	config  Config
	logger  interfaces.Logger
	stats   *stats.IngestStats
	runBase string
}

// NewIngester creates a new Ingester.
func NewIngester(config Config, logger interfaces.Logger, ingestStats *stats.IngestStats) *Ingester {
	if ingestStats == nil {
		ingestStats = stats.NewIngestStats()
	}
	return &Ingester{
		config:  config,
		logger:  logger,
		stats:   ingestStats,
		runBase: filepath.Base(filepath.Clean(config.RunDir)),
	}
}

// Stats returns the ingestion statistics.
func (i *Ingester) Stats() *stats.IngestStats {
	return i.stats
}

// NewRun creates the empty StressTest this ingester populates.
func (i *Ingester) NewRun() *analysis.StressTest {
	name := i.config.RunName
	if name == "" {
		name = i.runBase
	}
	return analysis.NewStressTest(name, i.config.RunDir)
}

// Run discovers and ingests every capture file under the run root.
// Only discovery failures and cancellation are returned as errors.
func (i *Ingester) Run(ctx context.Context) (*analysis.StressTest, error) {
	discovery, err := i.Discover()
	if err != nil {
		return nil, err
	}
	return i.Ingest(ctx, discovery)
}

// Discover lists the capture files under the run root.
func (i *Ingester) Discover() (*capture.Discovery, error) {
	discovery, err := capture.DiscoverFiles(i.config.RunDir)
	if err != nil {
		return nil, err
	}

	i.stats.SetDiscovered(len(discovery.Files), discovery.NumSkipped)
	i.stats.AddUnreadable(len(discovery.Unreadable))
	for _, path := range discovery.Unreadable {
		i.logger.Error("Skipped unreadable %s", path)
	}
	i.logger.Info("Discovered %d capture files (%d other files skipped, %s)",
		len(discovery.Files), discovery.NumSkipped, helpers.FormatBytes(discovery.TotalBytes()))
	return discovery, nil
}

// Ingest ingests the discovered files in order into a new run.
func (i *Ingester) Ingest(ctx context.Context, discovery *capture.Discovery) (*analysis.StressTest, error) {
	run := i.NewRun()
	progress := stats.NewProgressTracker(len(discovery.Files))

	for n, f := range discovery.Files {
		if err := ctx.Err(); err != nil {
			i.logger.Info("Ingestion interrupted after %d of %d files", n, len(discovery.Files))
			return run, err
		}

		if err := i.IngestFile(run, f); err != nil {
			i.logger.Error("%v", err)
		}

		progress.Increment(1)
		if i.config.ProgressInterval > 0 && (n+1)%i.config.ProgressInterval == 0 {
			progress.LogProgress(i.logger, "Files")
		}
	}
	return run, nil
}

// IngestFile ingests one capture file into run. The returned error is one of
// the per-file kinds and has already been counted; the caller decides how to
// report it.
func (i *Ingester) IngestFile(run *analysis.StressTest, f capture.DiscoveredFile) error {
	attr, err := capture.DecodePath(f.Path)
	if err == nil && attr.Run != i.runBase {
		err = &capture.InvalidPathError{Path: f.Path, Reason: "not directly below run root " + i.config.RunDir}
	}
	if err != nil {
		i.stats.AddPathError()
		return err
	}

	if attr.Role == capture.RoleServer && i.config.SkipServers {
		return nil
	}
	if !attr.HasChannel() {
		i.stats.AddNoChannel()
		return nil
	}

	// checked before reading so a rejected file is never repaired on disk
	if err := run.CheckHost(attr.App, attr.Host, attr.Role); err != nil {
		i.stats.AddHostConflict()
		return errors.Wrap(err, f.Path)
	}

	started := time.Now()
	file, err := capture.ReadFile(f.Path)
	if err != nil {
		i.stats.AddParseError()
		return err
	}
	samples, numTimeouts := file.Samples()
	parseTime := time.Since(started)

	if file.Repaired {
		i.logger.Warn("Repaired %s (original kept as %s)", f.Path, f.Path+capture.BackupSuffix)
	}
	if file.NumBadLines > 0 {
		i.logger.Warn("Skipped %d unparseable lines in %s", file.NumBadLines, f.Path)
	}

	app, err := run.GetClient(attr.App, attr.Host, attr.Role)
	if err != nil {
		i.stats.AddHostConflict()
		return errors.Wrap(err, f.Path)
	}

	if mismatch := app.AddFile(attr.Channel, file.Type, samples); mismatch {
		i.stats.AddTypeMismatch()
		i.logger.Warn("%s %s has type %s, adding %s file %s",
			attr.Role, app.Name, app.FileType, file.Type, f.Path)
	}

	run.RegisterFile(analysis.FileInfo{
		Path:        f.Path,
		Type:        file.Type,
		NumLines:    file.NumLines,
		NumSamples:  len(samples),
		NumTimeouts: numTimeouts,
		Repaired:    file.Repaired,
	})
	i.stats.AddIngested(f.Size, len(samples), numTimeouts, file.Repaired, parseTime)
	return nil
}

// CountDuplicates returns the number of overwritten samples over every PV.
func CountDuplicates(run *analysis.StressTest) int {
	n := 0
	for _, apps := range []map[string]*analysis.Client{run.Clients, run.Servers} {
		for _, c := range apps {
			for _, pv := range c.PVs {
				n += pv.NumDuplicates
			}
		}
	}
	return n
}
