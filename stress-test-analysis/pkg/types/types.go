// =============================================================================
// pkg/types/types.go - Core Data Types
// =============================================================================
//
// This package contains plain data types and constants shared by the
// stress-test-analysis packages. Capture level types are re-exported from
// helpers/capture so callers need only one import for them.
//
// =============================================================================

package types

import (
	"github.com/karthikiyer56/epics-stress-test-analysis/helpers/capture"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MB is megabytes in bytes
	MB = 1024 * 1024

	// DefaultReportLevel prints the per-client table.
	DefaultReportLevel = 2

	// MaxReportLevel prints per-PV rate series.
	MaxReportLevel = 4

	// DefaultShowSeconds is how many leading seconds of each PV series are
	// printed at MaxReportLevel.
	DefaultShowSeconds = 20

	// DefaultBlockCacheMB is the default RocksDB block cache for the result store.
	// Result stores are small; a large cache buys nothing.
	DefaultBlockCacheMB = 64

	// DefaultMDBXMaxSizeMB bounds the MDBX result store map size.
	DefaultMDBXMaxSizeMB = 4096
)

// =============================================================================
// Capture Types
// =============================================================================

type (
	Sample   = capture.Sample
	Record   = capture.Record
	FileType = capture.FileType
	Role     = capture.Role
)

const (
	FileTypePVCapture    = capture.FileTypePVCapture
	FileTypePVCaptureZst = capture.FileTypePVCaptureZst
	FileTypePVGet        = capture.FileTypePVGet

	RoleClient = capture.RoleClient
	RoleServer = capture.RoleServer
)

// =============================================================================
// Phase Enum
// =============================================================================

// Phase represents the current workflow phase.
// Phases progress linearly:
//
//	DISCOVERING -> INGESTING -> ANALYZING -> REPORTING -> STORING -> COMPLETE
//
// STORING is skipped when no result store is configured.
type Phase string

const (
	PhaseDiscovering Phase = "DISCOVERING"
	PhaseIngesting   Phase = "INGESTING"
	PhaseAnalyzing   Phase = "ANALYZING"
	PhaseReporting   Phase = "REPORTING"
	PhaseStoring     Phase = "STORING"
	PhaseComplete    Phase = "COMPLETE"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// =============================================================================
// Result Store Backend
// =============================================================================

// StoreBackend selects where analysed runs are persisted.
type StoreBackend string

const (
	StoreBackendNone    StoreBackend = ""
	StoreBackendRocksDB StoreBackend = "rocksdb"
	StoreBackendMDBX    StoreBackend = "mdbx"
)

// Valid reports whether b is a known backend.
func (b StoreBackend) Valid() bool {
	switch b {
	case StoreBackendNone, StoreBackendRocksDB, StoreBackendMDBX:
		return true
	}
	return false
}

// String returns the string representation of the backend.
func (b StoreBackend) String() string {
	if b == StoreBackendNone {
		return "none"
	}
	return string(b)
}

// RocksDBSettings contains tunable RocksDB parameters for the result store.
type RocksDBSettings struct {
	WriteBufferSizeMB     int `toml:"write_buffer_size_mb"`
	BlockCacheSizeMB      int `toml:"block_cache_size_mb"`
	BloomFilterBitsPerKey int `toml:"bloom_filter_bits_per_key"`
	MaxOpenFiles          int `toml:"max_open_files"`
}

// DefaultRocksDBSettings returns the default RocksDB settings.
func DefaultRocksDBSettings() RocksDBSettings {
	return RocksDBSettings{
		WriteBufferSizeMB:     16,
		BlockCacheSizeMB:      DefaultBlockCacheMB,
		BloomFilterBitsPerKey: 10,
		MaxOpenFiles:          256,
	}
}
