// =============================================================================
// main.go - Entry Point for stress-test-analysis
// =============================================================================
//
// stress-test-analysis reads the captures of one EPICS stress test run and
// reports per-second update, missed-update and timeout rates per PV, per
// client and for the whole run.
//
// USAGE:
//
//	stress-test-analysis [options] RUN_DIR
//
//	stress-test-analysis \
//	  --config /etc/stress/analysis.toml \
//	  --level 3 \
//	  --json /data/reports/run.json \
//	  --store-backend mdbx --store-path /data/stress/results.mdbx \
//	  /data/stress/run-2024-03-01
//
// SIGNAL HANDLING:
//
//	SIGINT / SIGTERM stop ingestion at the next file boundary. No report is
//	written for an interrupted run.
//
// EXIT CODES:
//
//	0 - Success
//	1 - Configuration error
//	2 - Runtime error
//	130 - Interrupted by SIGINT
//	143 - Terminated by SIGTERM
//
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/logging"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

const (
	// Version is the tool version
	Version = "1.0.0"

	// ToolName is the name of this tool
	ToolName = "stress-test-analysis"
)

const (
	ExitSuccess      = 0
	ExitConfigError  = 1
	ExitRuntimeError = 2
	ExitInterrupted  = 130 // 128 + SIGINT(2)
	ExitTerminated   = 143 // 128 + SIGTERM(15)
)

// =============================================================================
// Main Entry Point
// =============================================================================

func main() {
	config, showVersion, err := parseFlags(os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(ExitSuccess)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	if showVersion {
		fmt.Printf("%s version %s\n", ToolName, Version)
		os.Exit(ExitSuccess)
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	logger, err := logging.NewDualLogger(config.Logging.LogFile, config.Logging.ErrorFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(ExitConfigError)
	}

	os.Exit(run(config, logger))
}

// run executes the workflow and returns the process exit code.
func run(config *Config, logger interfaces.Logger) int {
	defer logger.Close()

	logStartup(logger)

	if config.DryRun {
		config.PrintConfig(logger)
		logDryRunStoreState(config, logger)
		logger.Separator()
		logger.Info("                         DRY RUN COMPLETE")
		logger.Separator()
		logger.Info("")
		logger.Info("Configuration validated successfully.")
		logger.Info("No captures read (--dry-run mode).")
		logger.Sync()

		fmt.Println("Dry run complete. Configuration is valid.")
		return ExitSuccess
	}
	config.PrintConfig(logger)

	workflow, err := NewWorkflow(config, logger, os.Stdout)
	if err != nil {
		logger.Error("Failed to create workflow: %v", err)
		return ExitRuntimeError
	}
	defer workflow.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := setupSignalHandling(cancel, logger)

	err = workflow.Run(ctx)
	logger.Sync()

	select {
	case sig := <-received:
		logger.Info("Stopped in phase %s after signal %v", workflow.Phase(), sig)
		if sig == syscall.SIGINT {
			return ExitInterrupted
		}
		return ExitTerminated
	default:
	}

	if err != nil {
		logger.Error("Workflow failed in phase %s: %v", workflow.Phase(), err)
		return ExitRuntimeError
	}
	logger.Info("Workflow completed successfully")
	return ExitSuccess
}

// =============================================================================
// Flag Parsing
// =============================================================================

// parseFlags builds the configuration from args. A --config file is loaded
// first; flags given explicitly then override it. The run directory may also
// be given as the single positional argument.
func parseFlags(args []string) (config *Config, showVersion bool, err error) {
	fs := flag.NewFlagSet(ToolName, flag.ContinueOnError)

	var (
		configFile       = fs.String("config", "", "Path to TOML config file")
		runDir           = fs.String("run-dir", "", "Run root directory (or pass it as the argument)")
		runName          = fs.String("name", "", "Run name shown in reports (default: base name of run dir)")
		skipServers      = fs.Bool("skip-servers", false, "Ignore server side captures")
		progressInterval = fs.Int("progress-interval", 0, "Log progress every N files (0 disables)")
		level            = fs.Int("level", types.DefaultReportLevel, "Report level 1-4")
		showSeconds      = fs.Int("show-seconds", types.DefaultShowSeconds, "Seconds of each PV series printed at level 4")
		jsonFile         = fs.String("json", "", "Write a JSON export of the run to this file")
		jsonChannels     = fs.Bool("json-channels", false, "Include every client PV series in the JSON export")
		logFile          = fs.String("log-file", "", "Log file (default: stdout)")
		errorFile        = fs.String("error-file", "", "Error log file (default: stderr)")
		storeBackend     = fs.String("store-backend", "", "Result store backend: rocksdb or mdbx")
		storePath        = fs.String("store-path", "", "Result store path")
		blockCacheMB     = fs.Int("block-cache-mb", types.DefaultBlockCacheMB, "RocksDB block cache size in MB")
		dryRun           = fs.Bool("dry-run", false, "Validate configuration and exit")
		version          = fs.Bool("version", false, "Show version and exit")
	)

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [options] RUN_DIR\n\n", ToolName)
		fmt.Fprintf(out, "%s reports update, missed-update and timeout rates of an\n", ToolName)
		fmt.Fprintf(out, "EPICS stress test run from its pvCapture and pvget captures.\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSignal handling:\n")
		fmt.Fprintf(out, "  SIGINT/SIGTERM        Stop at the next capture file\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *version {
		return nil, true, nil
	}

	config = DefaultConfig()
	if *configFile != "" {
		if config, err = LoadConfig(*configFile); err != nil {
			return nil, false, err
		}
	}

	overrides := map[string]func(){
		"run-dir":           func() { config.Run.Dir = *runDir },
		"name":              func() { config.Run.Name = *runName },
		"skip-servers":      func() { config.Run.SkipServers = *skipServers },
		"progress-interval": func() { config.Run.ProgressInterval = *progressInterval },
		"level":             func() { config.Report.Level = *level },
		"show-seconds":      func() { config.Report.ShowSeconds = *showSeconds },
		"json":              func() { config.Report.JSONFile = *jsonFile },
		"json-channels":     func() { config.Report.JSONChannels = *jsonChannels },
		"log-file":          func() { config.Logging.LogFile = *logFile },
		"error-file":        func() { config.Logging.ErrorFile = *errorFile },
		"store-backend":     func() { config.Store.Backend = types.StoreBackend(*storeBackend) },
		"store-path":        func() { config.Store.Path = *storePath },
		"block-cache-mb":    func() { config.Store.RocksDB.BlockCacheSizeMB = *blockCacheMB },
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})

	switch fs.NArg() {
	case 0:
	case 1:
		if *runDir != "" && *runDir != fs.Arg(0) {
			return nil, false, fmt.Errorf("run directory given twice: --run-dir %s and %s", *runDir, fs.Arg(0))
		}
		config.Run.Dir = fs.Arg(0)
	default:
		return nil, false, fmt.Errorf("expected one run directory, got %d arguments", fs.NArg())
	}

	config.DryRun = *dryRun
	return config, false, nil
}

// =============================================================================
// Signal Handling
// =============================================================================

// setupSignalHandling cancels the workflow on SIGINT or SIGTERM. The signal
// is passed on through the returned channel so the exit code can reflect it.
func setupSignalHandling(cancel context.CancelFunc, logger interfaces.Logger) <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	received := make(chan os.Signal, 1)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal: %v", sig)
		logger.Info("Stopping at the next capture file...")
		received <- sig
		cancel()
	}()
	return received
}

// =============================================================================
// Startup Logging
// =============================================================================

func logStartup(logger interfaces.Logger) {
	logger.Separator()
	logger.Info("                    %s v%s", ToolName, Version)
	logger.Separator()
	logger.Info("")
	logger.Info("Process ID:  %d", os.Getpid())
	logger.Info("Working Dir: %s", mustGetwd())
	logger.Info("")
	logger.Sync()
}

// logDryRunStoreState reports whether the result store already exists.
func logDryRunStoreState(config *Config, logger interfaces.Logger) {
	if config.Store.Backend == types.StoreBackendNone {
		return
	}
	if helpers.FileExists(config.Store.Path) {
		logger.Info("Result store exists: %s (the run is added to it)", config.Store.Path)
	} else {
		logger.Info("Result store will be created: %s", config.Store.Path)
	}
	logger.Info("")
}

// mustGetwd returns the current working directory or "unknown".
func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return wd
}
