// =============================================================================
// pkg/store/rocksdb.go - RocksDB Result Store
// =============================================================================
//
// A single default column family holds every key. Values are already zstd
// compressed by the codec, so RocksDB block compression is off.
//
// =============================================================================

package store

import (
	"sync"

	"github.com/linxGnu/grocksdb"
	"github.com/pkg/errors"

	"github.com/karthikiyer56/epics-stress-test-analysis/helpers"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/interfaces"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// RocksDBStore implements interfaces.ResultStore on RocksDB.
type RocksDBStore struct {
	mu sync.RWMutex

	db         *grocksdb.DB
	opts       *grocksdb.Options
	writeOpts  *grocksdb.WriteOptions
	readOpts   *grocksdb.ReadOptions
	blockCache *grocksdb.Cache

	codec  *Codec
	path   string
	logger interfaces.Logger
}

// OpenRocksDBStore opens or creates a RocksDB result store at path.
func OpenRocksDBStore(path string, settings types.RocksDBSettings, logger interfaces.Logger) (*RocksDBStore, error) {
	if err := helpers.EnsureDir(path); err != nil {
		return nil, errors.Wrapf(err, "failed to create store directory %s", path)
	}

	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}

	var blockCache *grocksdb.Cache
	if settings.BlockCacheSizeMB > 0 {
		blockCache = grocksdb.NewLRUCache(uint64(settings.BlockCacheSizeMB * types.MB))
	}

	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetErrorIfExists(false)
	opts.SetMaxOpenFiles(settings.MaxOpenFiles)
	opts.SetWriteBufferSize(uint64(settings.WriteBufferSizeMB * types.MB))
	opts.SetCompression(grocksdb.NoCompression)

	// Logging settings (reduce RocksDB log noise)
	opts.SetInfoLogLevel(grocksdb.WarnInfoLogLevel)
	opts.SetMaxLogFileSize(20 * types.MB)
	opts.SetKeepLogFileNum(3)

	bbto := grocksdb.NewDefaultBlockBasedTableOptions()
	if settings.BloomFilterBitsPerKey > 0 {
		bbto.SetFilterPolicy(grocksdb.NewBloomFilter(float64(settings.BloomFilterBitsPerKey)))
	}
	if blockCache != nil {
		bbto.SetBlockCache(blockCache)
	}
	opts.SetBlockBasedTableFactory(bbto)

	logger.Info("Opening RocksDB result store at: %s", path)
	db, err := grocksdb.OpenDb(opts, path)
	if err != nil {
		opts.Destroy()
		if blockCache != nil {
			blockCache.Destroy()
		}
		codec.Close()
		return nil, errors.Wrapf(err, "failed to open RocksDB store at %s", path)
	}

	logger.Info("  Block Cache:     %d MB", settings.BlockCacheSizeMB)
	logger.Info("  Write Buffer:    %d MB", settings.WriteBufferSizeMB)
	logger.Info("  Bloom Filter:    %d bits/key", settings.BloomFilterBitsPerKey)

	return &RocksDBStore{
		db:         db,
		opts:       opts,
		writeOpts:  grocksdb.NewDefaultWriteOptions(),
		readOpts:   grocksdb.NewDefaultReadOptions(),
		blockCache: blockCache,
		codec:      codec,
		path:       path,
		logger:     logger,
	}, nil
}

// SaveRun writes every entry of the run in one batch.
func (s *RocksDBStore) SaveRun(st *analysis.StressTest) error {
	entries := s.codec.RunEntries(st)

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := grocksdb.NewWriteBatch()
	defer batch.Destroy()

	var size int64
	for _, e := range entries {
		batch.Put(e.Key, e.Value)
		size += int64(len(e.Key) + len(e.Value))
	}
	if err := s.db.Write(s.writeOpts, batch); err != nil {
		return errors.Wrapf(err, "failed to write run %s", st.Name)
	}

	s.logger.Info("Saved run %s: %d keys, %s", st.Name, len(entries), helpers.FormatBytes(size))
	return nil
}

// get returns a copy of the value stored under key.
func (s *RocksDBStore) get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slice, err := s.db.Get(s.readOpts, key)
	if err != nil {
		return nil, false, err
	}
	defer slice.Free()

	if !slice.Exists() {
		return nil, false, nil
	}

	// Make a copy since slice data is invalidated after Free()
	value := make([]byte, slice.Size())
	copy(value, slice.Data())
	return value, true, nil
}

// LoadRunSummary reads a run summary.
func (s *RocksDBStore) LoadRunSummary(run string) (analysis.RunSummary, bool, error) {
	value, found, err := s.get(SummaryKey(run))
	if err != nil || !found {
		return analysis.RunSummary{}, false, errors.Wrapf(err, "failed to read summary of run %s", run)
	}
	summary, err := s.codec.DecodeRunSummary(value)
	return summary, err == nil, err
}

// LoadChannelSeries reads the series of one client PV.
func (s *RocksDBStore) LoadChannelSeries(run, client, pv string) (analysis.ChannelSeries, bool, error) {
	value, found, err := s.get(ChannelKey(run, client, pv))
	if err != nil || !found {
		return analysis.ChannelSeries{}, false, errors.Wrapf(err, "failed to read %s/%s in run %s", client, pv, run)
	}
	series, err := s.codec.DecodeChannelSeries(value)
	return series, err == nil, err
}

// Path returns the store directory.
func (s *RocksDBStore) Path() string {
	return s.path
}

// Close releases the database and all options.
func (s *RocksDBStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return
	}
	s.db.Close()
	s.db = nil
	s.writeOpts.Destroy()
	s.readOpts.Destroy()
	s.opts.Destroy()
	if s.blockCache != nil {
		s.blockCache.Destroy()
	}
	s.codec.Close()
}

var _ interfaces.ResultStore = (*RocksDBStore)(nil)
