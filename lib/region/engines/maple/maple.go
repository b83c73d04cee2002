package maple

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/google/btree"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const defaultDegree = 32 // B-tree node degree

// ErrClosed is returned by every operation on a closed medium
var ErrClosed = errors.New("maple: medium is closed")

// --------------------------------------------------------------------------
// Core Maple medium structure
// --------------------------------------------------------------------------

// entry is the item stored in the per-region B-trees
type entry struct {
	key   uint64
	value []byte
}

func lessEntry(a, b entry) bool {
	return a.key < b.key
}

type tree = btree.BTreeG[entry]

// mapleImpl keeps every region in its own copy-on-write B-tree.
// Committed trees are never modified: a transaction works on lazy clones and
// commit swaps the region pointers. A snapshot is therefore just a copy of
// the pointer map.
type mapleImpl struct {
	writeMu sync.Mutex          // serializes transactions
	mu      sync.RWMutex        // guards regions
	regions map[region.ID]*tree // committed state
	degree  int
	closed  atomic.Bool
}

// Options configures the mapleImpl behavior during initialization
type Options struct {
	Degree int // B-tree degree (0 = default)
}

// NewMapleMedium creates a new in-memory medium.
// Its content is lost when the process exits, it is durable only as part of a
// replicated state machine that persists snapshots and a log.
func NewMapleMedium(opts *Options) region.IMedium {
	degree := defaultDegree
	if opts != nil && opts.Degree > 1 {
		degree = opts.Degree
	}
	return &mapleImpl{
		regions: make(map[region.ID]*tree),
		degree:  degree,
	}
}

// Factory returns a region.Factory for maple mediums
func Factory(opts *Options) region.Factory {
	return func() (region.IMedium, error) {
		return NewMapleMedium(opts), nil
	}
}

func (maple *mapleImpl) newTree() *tree {
	return btree.NewG[entry](maple.degree, lessEntry)
}

// committed returns a copy of the committed region map
func (maple *mapleImpl) committed() map[region.ID]*tree {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	view := make(map[region.ID]*tree, len(maple.regions))
	for id, t := range maple.regions {
		view[id] = t
	}
	return view
}

// --------------------------------------------------------------------------
// IMedium Interface Methods
// --------------------------------------------------------------------------

// Update runs fn against private clones of the touched regions and publishes
// them only if fn succeeds.
//
// Thread-safety: Transactions are serialized, snapshots are never blocked by them.
func (maple *mapleImpl) Update(fn func(tx region.ITxn) error) error {
	if maple.closed.Load() {
		return ErrClosed
	}

	maple.writeMu.Lock()
	defer maple.writeMu.Unlock()

	tx := &txn{
		maple:   maple,
		base:    maple.committed(),
		working: make(map[region.ID]*tree),
	}

	if err := fn(tx); err != nil {
		return err
	}

	maple.mu.Lock()
	for id, t := range tx.working {
		if t.Len() == 0 {
			delete(maple.regions, id)
		} else {
			maple.regions[id] = t
		}
	}
	maple.mu.Unlock()

	return nil
}

// Snapshot captures the committed trees.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Snapshot() (region.ISnapshot, error) {
	if maple.closed.Load() {
		return nil, ErrClosed
	}
	return &snapshot{trees: maple.committed()}, nil
}

func (maple *mapleImpl) SupportsFeature(feature region.Feature) bool {
	supported := region.FeatureSnapshotRead | region.FeatureAtomicBatch
	return feature&supported == feature
}

// Metadata is the maple specific part of region.Info
type Metadata struct {
	Degree  int                  `json:"degree" yaml:"degree"`
	Entries map[region.ID]uint64 `json:"entries" yaml:"entries"`
}

func (maple *mapleImpl) GetInfo() region.Info {
	entries := make(map[region.ID]uint64)
	for id, t := range maple.committed() {
		entries[id] = uint64(t.Len())
	}
	return region.Info{
		Impl:              region.ImplMaple,
		SupportedFeatures: region.FeatureNames(maple),
		Metadata: Metadata{
			Degree:  maple.degree,
			Entries: entries,
		},
	}
}

func (maple *mapleImpl) Close() error {
	maple.closed.Store(true)

	maple.mu.Lock()
	maple.regions = make(map[region.ID]*tree)
	maple.mu.Unlock()

	return nil
}

// --------------------------------------------------------------------------
// Views
// --------------------------------------------------------------------------

// reader reads one tree, a nil tree is an empty region
type reader struct {
	t *tree
}

func (r reader) Get(key uint64) ([]byte, bool, error) {
	if r.t == nil {
		return nil, false, nil
	}
	e, ok := r.t.Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

func (r reader) Len() (uint64, error) {
	if r.t == nil {
		return 0, nil
	}
	return uint64(r.t.Len()), nil
}

func (r reader) Ascend(fn func(key uint64, value []byte) bool) error {
	if r.t == nil {
		return nil
	}
	r.t.Ascend(func(e entry) bool {
		return fn(e.key, slices.Clone(e.value))
	})
	return nil
}

func regionIDs(trees map[region.ID]*tree) []region.ID {
	ids := make([]region.ID, 0, len(trees))
	for id, t := range trees {
		if t != nil && t.Len() > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type snapshot struct {
	trees map[region.ID]*tree
}

func (s *snapshot) Reader(id region.ID) region.IReader {
	return reader{t: s.trees[id]}
}

func (s *snapshot) Regions() ([]region.ID, error) {
	return regionIDs(s.trees), nil
}

func (s *snapshot) Release() error {
	s.trees = nil
	return nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type txn struct {
	maple   *mapleImpl
	base    map[region.ID]*tree // committed trees at transaction start
	working map[region.ID]*tree // clones written by this transaction
}

// current returns the tree a read in this transaction should see
func (tx *txn) current(id region.ID) *tree {
	if t, ok := tx.working[id]; ok {
		return t
	}
	return tx.base[id]
}

// writable returns the private clone of region id, creating it on first use
func (tx *txn) writable(id region.ID) *tree {
	if t, ok := tx.working[id]; ok {
		return t
	}
	var t *tree
	if base := tx.base[id]; base != nil {
		t = base.Clone()
	} else {
		t = tx.maple.newTree()
	}
	tx.working[id] = t
	return t
}

func (tx *txn) Reader(id region.ID) region.IReader {
	return reader{t: tx.current(id)}
}

func (tx *txn) Writer(id region.ID) region.IWriter {
	return &writer{tx: tx, id: id}
}

func (tx *txn) Regions() ([]region.ID, error) {
	merged := make(map[region.ID]*tree, len(tx.base)+len(tx.working))
	for id, t := range tx.base {
		merged[id] = t
	}
	for id, t := range tx.working {
		merged[id] = t
	}
	return regionIDs(merged), nil
}

type writer struct {
	tx *txn
	id region.ID
}

func (w *writer) Get(key uint64) ([]byte, bool, error) {
	return reader{t: w.tx.current(w.id)}.Get(key)
}

func (w *writer) Len() (uint64, error) {
	return reader{t: w.tx.current(w.id)}.Len()
}

func (w *writer) Ascend(fn func(key uint64, value []byte) bool) error {
	return reader{t: w.tx.current(w.id)}.Ascend(fn)
}

func (w *writer) Set(key uint64, value []byte) error {
	w.tx.writable(w.id).ReplaceOrInsert(entry{key: key, value: slices.Clone(value)})
	return nil
}

func (w *writer) Delete(key uint64) error {
	w.tx.writable(w.id).Delete(entry{key: key})
	return nil
}

func (w *writer) Clear() error {
	w.tx.working[w.id] = w.tx.maple.newTree()
	return nil
}
