// =============================================================================
// pkg/store/mdbx.go - MDBX Result Store
// =============================================================================
//
// The store is a single file (NoSubdir) with one named table, "results".
// A run is saved in one write transaction, so a reader never sees a run
// summary without its series.
//
// =============================================================================

package store

import (
	"path/filepath"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/pkg/errors"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

const (
	mdbxTable      = "results"
	mdbxGrowthStep = 64 * types.MB
)

// MDBXStore implements interfaces.ResultStore on MDBX.
type MDBXStore struct {
	env    *mdbx.Env
	dbi    mdbx.DBI
	codec  *Codec
	path   string
	logger interfaces.Logger
}

// OpenMDBXStore opens or creates an MDBX result store file at path.
func OpenMDBXStore(path string, maxSizeMB int, logger interfaces.Logger) (*MDBXStore, error) {
	if err := helpers.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mdbx environment")
	}

	err = env.SetGeometry(
		-1,                 // size_lower: default
		-1,                 // size_now: default
		maxSizeMB*types.MB, // size_upper
		mdbxGrowthStep,     // growth_step
		-1,                 // shrink_threshold: disabled
		-1,                 // pagesize: default
	)
	if err != nil {
		env.Close()
		return nil, errors.Wrap(err, "failed to set geometry")
	}

	err = env.SetOption(mdbx.OptMaxDB, uint64(2))
	if err != nil {
		env.Close()
		return nil, errors.Wrap(err, "failed to set max dbs")
	}

	err = env.Open(path, mdbx.NoSubdir|mdbx.Coalesce|mdbx.LifoReclaim|mdbx.WriteMap, 0644)
	if err != nil {
		env.Close()
		return nil, errors.Wrapf(err, "failed to open MDBX store at %s", path)
	}

	var dbi mdbx.DBI
	err = env.Update(func(txn *mdbx.Txn) error {
		var err error
		dbi, err = txn.OpenDBI(mdbxTable, mdbx.Create, nil, nil)
		return err
	})
	if err != nil {
		env.Close()
		return nil, errors.Wrap(err, "failed to open DBI")
	}

	codec, err := NewCodec()
	if err != nil {
		env.Close()
		return nil, err
	}

	logger.Info("MDBX result store opened: %s (max %d MB)", path, maxSizeMB)
	return &MDBXStore{env: env, dbi: dbi, codec: codec, path: path, logger: logger}, nil
}

// SaveRun writes every entry of the run in one transaction.
func (s *MDBXStore) SaveRun(st *analysis.StressTest) error {
	entries := s.codec.RunEntries(st)

	var size int64
	err := s.env.Update(func(txn *mdbx.Txn) error {
		for _, e := range entries {
			if err := txn.Put(s.dbi, e.Key, e.Value, mdbx.Upsert); err != nil {
				return errors.Wrapf(err, "failed to put %s", e.Key)
			}
			size += int64(len(e.Key) + len(e.Value))
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write run %s", st.Name)
	}

	s.logger.Info("Saved run %s: %d keys, %s", st.Name, len(entries), helpers.FormatBytes(size))
	return nil
}

// view runs decode on the value stored under key inside a read transaction.
// Values returned by txn.Get are only valid until the transaction ends.
func (s *MDBXStore) view(key []byte, decode func(value []byte) error) (bool, error) {
	found := false
	err := s.env.View(func(txn *mdbx.Txn) error {
		value, err := txn.Get(s.dbi, key)
		if err != nil {
			if mdbx.IsNotFound(err) {
				return nil
			}
			return err
		}
		found = true
		return decode(value)
	})
	return found, err
}

// LoadRunSummary reads a run summary.
func (s *MDBXStore) LoadRunSummary(run string) (analysis.RunSummary, bool, error) {
	var summary analysis.RunSummary
	found, err := s.view(SummaryKey(run), func(value []byte) error {
		var err error
		summary, err = s.codec.DecodeRunSummary(value)
		return err
	})
	if err != nil {
		return analysis.RunSummary{}, false, errors.Wrapf(err, "failed to read summary of run %s", run)
	}
	return summary, found, nil
}

// LoadChannelSeries reads the series of one client PV.
func (s *MDBXStore) LoadChannelSeries(run, client, pv string) (analysis.ChannelSeries, bool, error) {
	var series analysis.ChannelSeries
	found, err := s.view(ChannelKey(run, client, pv), func(value []byte) error {
		var err error
		series, err = s.codec.DecodeChannelSeries(value)
		return err
	})
	if err != nil {
		return analysis.ChannelSeries{}, false, errors.Wrapf(err, "failed to read %s/%s in run %s", client, pv, run)
	}
	return series, found, nil
}

// Path returns the store file.
func (s *MDBXStore) Path() string {
	return s.path
}

// Close closes the environment.
func (s *MDBXStore) Close() {
	if s.env != nil {
		s.env.Close()
		s.env = nil
		s.codec.Close()
	}
}

var _ interfaces.ResultStore = (*MDBXStore)(nil)
