// =============================================================================
// pkg/store/store.go - Result Store Selection
// =============================================================================
//
// Package store persists analysed runs in RocksDB or MDBX. Both backends share
// the key layout and value codec in codec.go, so a run saved by one can be
// exported and compared against runs saved by the other.
//
// =============================================================================

package store

import (
	"github.com/pkg/errors"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// Settings selects and tunes a result store backend.
type Settings struct {
	Backend       types.StoreBackend
	Path          string
	RocksDB       types.RocksDBSettings
	MDBXMaxSizeMB int
}

// Open opens the configured backend. It is an error to call Open with
// StoreBackendNone.
func Open(settings Settings, logger interfaces.Logger) (interfaces.ResultStore, error) {
	switch settings.Backend {
	case types.StoreBackendRocksDB:
		return OpenRocksDBStore(settings.Path, settings.RocksDB, logger)
	case types.StoreBackendMDBX:
		return OpenMDBXStore(settings.Path, settings.MDBXMaxSizeMB, logger)
	}
	return nil, errors.Errorf("no result store backend %q", settings.Backend)
}
