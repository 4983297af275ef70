// =============================================================================
// config.go - Configuration for stress-test-analysis
// =============================================================================
//
// Configuration comes from three places, later ones winning:
//
//	1. DefaultConfig()
//	2. An optional TOML file (--config)
//	3. Command-line flags that were set explicitly
//
// EXAMPLE TOML:
//
//	[run]
//	dir = "/data/stress/run-2024-03-01"
//	skip_servers = false
//	progress_interval = 500
//
//	[report]
//	level = 3
//	show_seconds = 20
//	json_file = "/data/reports/run-2024-03-01.json"
//	json_channels = true
//
//	[logging]
//	log_file = "/var/log/stress/analysis.log"
//	error_file = "/var/log/stress/analysis.err"
//
//	[store]
//	backend = "rocksdb"
//	path = "/data/stress/results"
//
//	[store.rocksdb]
//	block_cache_size_mb = 64
//
// =============================================================================

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/ingest"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/report"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/store"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// =============================================================================
// Configuration Structures
// =============================================================================

// Config represents the complete tool configuration.
type Config struct {
	Run     RunConfig     `toml:"run"`
	Report  ReportConfig  `toml:"report"`
	Logging LoggingConfig `toml:"logging"`
	Store   StoreConfig   `toml:"store"`

	// ConfigFile is the TOML file the configuration was loaded from, if any.
	ConfigFile string `toml:"-"`

	// DryRun validates configuration and exits without reading captures.
	DryRun bool `toml:"-"`
}

// RunConfig selects the run to analyse.
type RunConfig struct {
	// Dir is the run root: <Dir>/<host>/{clients|servers}/<app>/<file>
	Dir string `toml:"dir"`

	// Name overrides the run name (default: base name of Dir)
	Name string `toml:"name"`

	// SkipServers ignores server side captures
	SkipServers bool `toml:"skip_servers"`

	// ProgressInterval logs progress every N files (0 disables)
	ProgressInterval int `toml:"progress_interval"`
}

// ReportConfig controls the text report and the JSON export.
type ReportConfig struct {
	// Level is 1 (totals) to 4 (per-PV series)
	Level int `toml:"level"`

	// ShowSeconds is how many leading seconds per series are printed at level 4
	ShowSeconds int `toml:"show_seconds"`

	// JSONFile, when set, receives a JSON export of the analysed run
	JSONFile string `toml:"json_file"`

	// JSONChannels includes every client PV series in the JSON export
	JSONChannels bool `toml:"json_channels"`
}

// LoggingConfig selects log destinations. Empty paths mean stdout/stderr.
type LoggingConfig struct {
	LogFile   string `toml:"log_file"`
	ErrorFile string `toml:"error_file"`
}

// StoreConfig selects the optional result store.
type StoreConfig struct {
	// Backend is "rocksdb", "mdbx", or empty for no store
	Backend types.StoreBackend `toml:"backend"`

	// Path is a directory for rocksdb and a file for mdbx
	Path string `toml:"path"`

	// MDBXMaxSizeMB bounds the MDBX map size
	MDBXMaxSizeMB int `toml:"mdbx_max_size_mb"`

	RocksDB types.RocksDBSettings `toml:"rocksdb"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ProgressInterval: 1000,
		},
		Report: ReportConfig{
			Level:       types.DefaultReportLevel,
			ShowSeconds: types.DefaultShowSeconds,
		},
		Store: StoreConfig{
			MDBXMaxSizeMB: types.DefaultMDBXMaxSizeMB,
			RocksDB:       types.DefaultRocksDBSettings(),
		},
	}
}

// =============================================================================
// Configuration Loading
// =============================================================================

// LoadConfig reads a TOML file on top of DefaultConfig. The result is not
// validated.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}

	config.ConfigFile = path
	return config, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the configuration and resolves paths. Outside dry-run mode
// it also creates log and output directories.
func (c *Config) Validate() error {
	if c.Run.Dir == "" {
		return fmt.Errorf("run directory is required (--run-dir or [run] dir)")
	}
	absRunDir, err := filepath.Abs(c.Run.Dir)
	if err != nil {
		return fmt.Errorf("invalid run directory: %w", err)
	}
	c.Run.Dir = absRunDir
	if !helpers.IsDir(absRunDir) {
		return fmt.Errorf("run directory does not exist: %s", absRunDir)
	}
	if c.Run.ProgressInterval < 0 {
		return fmt.Errorf("progress_interval must be >= 0, got %d", c.Run.ProgressInterval)
	}

	if c.Report.Level < 1 || c.Report.Level > types.MaxReportLevel {
		return fmt.Errorf("report level must be between 1 and %d, got %d", types.MaxReportLevel, c.Report.Level)
	}
	if c.Report.ShowSeconds < 0 {
		return fmt.Errorf("show_seconds must be >= 0, got %d", c.Report.ShowSeconds)
	}

	if !c.Store.Backend.Valid() {
		return fmt.Errorf("unknown store backend %q (want rocksdb or mdbx)", c.Store.Backend)
	}
	if c.Store.Backend != types.StoreBackendNone {
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for backend %s", c.Store.Backend)
		}
		absStore, err := filepath.Abs(c.Store.Path)
		if err != nil {
			return fmt.Errorf("invalid store path: %w", err)
		}
		c.Store.Path = absStore
	}
	if c.Store.Backend == types.StoreBackendMDBX && c.Store.MDBXMaxSizeMB <= 0 {
		return fmt.Errorf("mdbx_max_size_mb must be > 0, got %d", c.Store.MDBXMaxSizeMB)
	}

	if c.DryRun {
		return nil
	}
	for _, path := range []string{c.Logging.LogFile, c.Logging.ErrorFile, c.Report.JSONFile} {
		if path == "" {
			continue
		}
		if err := helpers.EnsureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	return nil
}

// IngestConfig returns the ingestion settings.
func (c *Config) IngestConfig() ingest.Config {
	return ingest.Config{
		RunDir:           c.Run.Dir,
		RunName:          c.Run.Name,
		SkipServers:      c.Run.SkipServers,
		ProgressInterval: c.Run.ProgressInterval,
	}
}

// ReportOptions returns the text report options.
func (c *Config) ReportOptions() report.Options {
	return report.Options{Level: c.Report.Level, ShowSeconds: c.Report.ShowSeconds}
}

// StoreSettings returns the result store settings.
func (c *Config) StoreSettings() store.Settings {
	return store.Settings{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RocksDB:       c.Store.RocksDB,
		MDBXMaxSizeMB: c.Store.MDBXMaxSizeMB,
	}
}

// PrintConfig logs the configuration.
func (c *Config) PrintConfig(logger interfaces.Logger) {
	logger.Separator()
	logger.Info("                         CONFIGURATION")
	logger.Separator()
	logger.Info("")
	if c.ConfigFile != "" {
		logger.Info("Config File:           %s", c.ConfigFile)
		logger.Info("")
	}
	logger.Info("RUN:")
	logger.Info("  Run Dir:             %s", c.Run.Dir)
	if c.Run.Name != "" {
		logger.Info("  Run Name:            %s", c.Run.Name)
	}
	logger.Info("  Skip Servers:        %v", c.Run.SkipServers)
	logger.Info("  Progress Interval:   %d files", c.Run.ProgressInterval)
	logger.Info("")
	logger.Info("REPORT:")
	logger.Info("  Level:               %d", c.Report.Level)
	logger.Info("  Show Seconds:        %d", c.Report.ShowSeconds)
	if c.Report.JSONFile != "" {
		logger.Info("  JSON File:           %s (channels: %v)", c.Report.JSONFile, c.Report.JSONChannels)
	}
	logger.Info("")
	logger.Info("LOGGING:")
	logger.Info("  Log File:            %s", orDefault(c.Logging.LogFile, "stdout"))
	logger.Info("  Error File:          %s", orDefault(c.Logging.ErrorFile, "stderr"))
	logger.Info("")
	logger.Info("STORE:")
	logger.Info("  Backend:             %s", c.Store.Backend)
	switch c.Store.Backend {
	case types.StoreBackendRocksDB:
		logger.Info("  Path:                %s", c.Store.Path)
		logger.Info("  Block Cache:         %d MB", c.Store.RocksDB.BlockCacheSizeMB)
		logger.Info("  Write Buffer:        %d MB", c.Store.RocksDB.WriteBufferSizeMB)
	case types.StoreBackendMDBX:
		logger.Info("  Path:                %s", c.Store.Path)
		logger.Info("  Max Size:            %d MB", c.Store.MDBXMaxSizeMB)
	}
	logger.Info("")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
