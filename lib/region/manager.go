package region

import (
	"fmt"
	"io"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("region")

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager owns a medium and hands out region handles.
// Exactly one manager should exist per medium.
type Manager struct {
	medium  IMedium
	handles *xsync.MapOf[ID, *Handle]
}

// Handle is the claim on one region.
// It carries no state besides the region id and is safe for concurrent use.
type Handle struct {
	id ID
}

// NewManager creates a manager for an already opened medium
func NewManager(medium IMedium) *Manager {
	return &Manager{
		medium:  medium,
		handles: xsync.NewMapOf[ID, *Handle](),
	}
}

// Open creates the medium and a manager for it.
// A failing factory is a fatal start-up fault and is returned as is.
func Open(factory Factory) (*Manager, error) {
	medium, err := factory()
	if err != nil {
		return nil, fmt.Errorf("region: cannot initialize medium: %w", err)
	}
	info := medium.GetInfo()
	Logger.Infof("opened %s medium %s (features: %v)", info.Impl, info.Path, info.SupportedFeatures)
	return NewManager(medium), nil
}

// Region returns the handle for id. Repeated calls with the same id return the same handle.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Manager) Region(id ID) *Handle {
	h, _ := m.handles.LoadOrCompute(id, func() *Handle {
		return &Handle{id: id}
	})
	return h
}

// Update runs fn inside one atomic read-write transaction.
// Any error returned by fn discards all writes of the transaction.
func (m *Manager) Update(fn func(tx ITxn) error) error {
	return m.medium.Update(fn)
}

// View runs fn against a consistent snapshot of all regions.
// The snapshot is released when fn returns, values obtained from it stay valid.
func (m *Manager) View(fn func(v IView) error) (err error) {
	snap, err := m.medium.Snapshot()
	if err != nil {
		return fmt.Errorf("region: cannot open snapshot: %w", err)
	}
	defer func() {
		if rErr := snap.Release(); rErr != nil && err == nil {
			err = rErr
		}
	}()
	return fn(snap)
}

// Checkpoint opens a snapshot the caller must release.
// It is meant for long-lived consumers such as a raft snapshot in progress.
func (m *Manager) Checkpoint() (ISnapshot, error) {
	return m.medium.Snapshot()
}

// Save writes all regions to w in the region snapshot format.
func (m *Manager) Save(w io.Writer) error {
	return m.View(func(v IView) error {
		return WriteSnapshot(w, v)
	})
}

// Load replaces the content of all regions with the snapshot read from r.
// A corrupted snapshot leaves the medium unchanged.
func (m *Manager) Load(r io.Reader) error {
	return m.Update(func(tx ITxn) error {
		return ReadSnapshot(r, tx)
	})
}

// Medium returns the medium backing the manager
func (m *Manager) Medium() IMedium {
	return m.medium
}

// Close closes the medium
func (m *Manager) Close() error {
	return m.medium.Close()
}

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

// ID returns the region id of the handle
func (h *Handle) ID() ID {
	return h.id
}

// Reader scopes a view to this region
func (h *Handle) Reader(v IView) IReader {
	return v.Reader(h.id)
}

// Writer scopes a transaction to this region
func (h *Handle) Writer(tx ITxn) IWriter {
	return tx.Writer(h.id)
}
