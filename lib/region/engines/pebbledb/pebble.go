package pebbledb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

// ErrClosed is returned by every operation on a closed medium
var ErrClosed = errors.New("pebbledb: medium is closed")

// keySize is the region prefix plus the big endian key
const keySize = 1 + 8

// --------------------------------------------------------------------------
// Key Encoding
// --------------------------------------------------------------------------

func encodeKey(id region.ID, key uint64) []byte {
	buf := make([]byte, keySize)
	buf[0] = byte(id)
	binary.BigEndian.PutUint64(buf[1:], key)
	return buf
}

func decodeKey(raw []byte) (region.ID, uint64, error) {
	if len(raw) != keySize {
		return 0, 0, fmt.Errorf("pebbledb: malformed key of %d bytes", len(raw))
	}
	return region.ID(raw[0]), binary.BigEndian.Uint64(raw[1:]), nil
}

// bounds returns the iterator bounds covering exactly one region
func bounds(id region.ID) *pebble.IterOptions {
	opts := &pebble.IterOptions{LowerBound: []byte{byte(id)}}
	if id < 255 {
		opts.UpperBound = []byte{byte(id) + 1}
	}
	return opts
}

// --------------------------------------------------------------------------
// Logger Adapter
// --------------------------------------------------------------------------

// pebbleLogger routes pebble's internal logging to the region logger
type pebbleLogger struct {
	l logger.ILogger
}

func (p pebbleLogger) Infof(format string, args ...interface{}) {
	p.l.Debugf(format, args...)
}

func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	p.l.Panicf(format, args...)
}

// --------------------------------------------------------------------------
// Core Pebble medium structure
// --------------------------------------------------------------------------

type pebbleImpl struct {
	db      *pebble.DB
	path    string
	writeMu sync.Mutex // serializes transactions
	closed  atomic.Bool
}

// Options configures the pebble medium
type Options struct {
	// CacheSize of the block cache in bytes (0 = pebble default)
	CacheSize int64
}

// NewPebbleMedium opens (or creates) a pebble database in dir.
// Every committed transaction is synced to disk before Update returns.
func NewPebbleMedium(dir string, opts *Options) (region.IMedium, error) {
	pebbleOpts := &pebble.Options{
		Logger: pebbleLogger{l: region.Logger},
	}
	if opts != nil && opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("pebbledb: cannot open %s: %w", dir, err)
	}

	return &pebbleImpl{db: db, path: dir}, nil
}

// Factory returns a region.Factory opening a pebble medium in dir
func Factory(dir string, opts *Options) region.Factory {
	return func() (region.IMedium, error) {
		return NewPebbleMedium(dir, opts)
	}
}

// --------------------------------------------------------------------------
// IMedium Interface Methods
// --------------------------------------------------------------------------

// Update runs fn against an indexed batch, which makes the transaction's own
// writes visible to its reads. The batch is committed with a sync, or dropped
// when fn fails.
func (p *pebbleImpl) Update(fn func(tx region.ITxn) error) error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	batch := p.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&txn{batch: batch}); err != nil {
		return err
	}

	if batch.Empty() {
		return nil
	}
	return batch.Commit(pebble.Sync)
}

func (p *pebbleImpl) Snapshot() (region.ISnapshot, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return &snapshot{snap: p.db.NewSnapshot()}, nil
}

func (p *pebbleImpl) SupportsFeature(feature region.Feature) bool {
	supported := region.FeatureDurable | region.FeatureSnapshotRead | region.FeatureAtomicBatch
	return feature&supported == feature
}

func (p *pebbleImpl) GetInfo() region.Info {
	return region.Info{
		Impl:              region.ImplPebble,
		Path:              p.path,
		SupportedFeatures: region.FeatureNames(p),
	}
}

func (p *pebbleImpl) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	// wait for a running transaction
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.db.Close()
}

// --------------------------------------------------------------------------
// Readers
// --------------------------------------------------------------------------

// source is what pebble readers have in common (*pebble.Batch, *pebble.Snapshot)
type source interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) *pebble.Iterator
}

type reader struct {
	src source
	id  region.ID
}

func (r reader) Get(key uint64) ([]byte, bool, error) {
	value, closer, err := r.src.Get(encodeKey(r.id, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return slices.Clone(value), true, nil
}

func (r reader) Len() (uint64, error) {
	var n uint64
	err := r.Ascend(func(uint64, []byte) bool {
		n++
		return true
	})
	return n, err
}

func (r reader) Ascend(fn func(key uint64, value []byte) bool) error {
	iter := r.src.NewIter(bounds(r.id))
	for valid := iter.First(); valid; valid = iter.Next() {
		_, key, err := decodeKey(iter.Key())
		if err != nil {
			_ = iter.Close()
			return err
		}
		if !fn(key, slices.Clone(iter.Value())) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return err
	}
	return iter.Close()
}

// regions lists the region prefixes present in src by seeking from one prefix to the next
func regions(src source) ([]region.ID, error) {
	iter := src.NewIter(nil)
	var ids []region.ID
	for valid := iter.First(); valid; {
		id := iter.Key()[0]
		ids = append(ids, region.ID(id))
		if id == 255 {
			break
		}
		valid = iter.SeekGE([]byte{id + 1})
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return nil, err
	}
	return ids, iter.Close()
}

type snapshot struct {
	snap *pebble.Snapshot
	once sync.Once
}

func (s *snapshot) Reader(id region.ID) region.IReader {
	return reader{src: s.snap, id: id}
}

func (s *snapshot) Regions() ([]region.ID, error) {
	return regions(s.snap)
}

func (s *snapshot) Release() (err error) {
	s.once.Do(func() {
		err = s.snap.Close()
	})
	return err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type txn struct {
	batch *pebble.Batch
}

func (tx *txn) Reader(id region.ID) region.IReader {
	return reader{src: tx.batch, id: id}
}

func (tx *txn) Writer(id region.ID) region.IWriter {
	return &writer{reader: reader{src: tx.batch, id: id}, batch: tx.batch}
}

func (tx *txn) Regions() ([]region.ID, error) {
	return regions(tx.batch)
}

type writer struct {
	reader
	batch *pebble.Batch
}

func (w *writer) Set(key uint64, value []byte) error {
	return w.batch.Set(encodeKey(w.id, key), value, nil)
}

func (w *writer) Delete(key uint64) error {
	return w.batch.Delete(encodeKey(w.id, key), nil)
}

func (w *writer) Clear() error {
	var keys []uint64
	if err := w.Ascend(func(key uint64, _ []byte) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return err
	}
	for _, key := range keys {
		if err := w.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
