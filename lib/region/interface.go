package region

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// ID addresses one region of a medium.
type ID uint8

const (
	IDCounter ID = 0 // Identifier allocator counter
	IDRecords ID = 1 // Record map
)

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplPebble Implementation = "pebble"
	ImplSQLite Implementation = "sqlite"
)

// Feature represents medium features as bit flags
type Feature uint64

const (
	FeatureDurable      Feature = 1 << iota // Committed writes survive a process restart
	FeatureSnapshotRead                     // Snapshots are isolated from concurrent writes
	FeatureAtomicBatch                      // All writes of one Update commit or none do
)

func (f Feature) String() string {
	switch f {
	case FeatureDurable:
		return "Durable"
	case FeatureSnapshotRead:
		return "SnapshotRead"
	case FeatureAtomicBatch:
		return "AtomicBatch"
	default:
		return "Unknown"
	}
}

// AllFeatures lists every known feature flag
var AllFeatures = []Feature{FeatureDurable, FeatureSnapshotRead, FeatureAtomicBatch}

type Info struct {
	Impl              Implementation `json:"impl" yaml:"impl"`
	Path              string         `json:"path,omitempty" yaml:"path,omitempty"`
	SupportedFeatures []string       `json:"supported_features" yaml:"supported_features"`
	Metadata          interface{}    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FeatureNames returns the names of all features supported by m
func FeatureNames(m IMedium) []string {
	var names []string
	for _, f := range AllFeatures {
		if m.SupportsFeature(f) {
			names = append(names, f.String())
		}
	}
	return names
}

// --------------------------------------------------------------------------
// Medium Interface
// --------------------------------------------------------------------------

// IReader gives read access to one region.
// Values returned by Get and passed to Ascend are copies owned by the caller.
type IReader interface {
	// Get returns the value stored under key. The boolean reports whether the key exists.
	Get(key uint64) (value []byte, ok bool, err error)
	// Len returns the number of entries in the region.
	Len() (n uint64, err error)
	// Ascend calls fn for every entry in ascending key order until fn returns false.
	Ascend(fn func(key uint64, value []byte) bool) (err error)
}

// IWriter gives read-write access to one region inside a transaction.
// Reads through an IWriter observe the writes made earlier in the same transaction.
type IWriter interface {
	IReader
	// Set inserts or overwrites the value for key.
	Set(key uint64, value []byte) (err error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key uint64) (err error)
	// Clear removes every entry of the region.
	Clear() (err error)
}

// IView is a consistent read view across all regions.
type IView interface {
	// Reader returns read access to region id within this view.
	Reader(id ID) IReader
	// Regions lists the regions holding at least one entry, ascending.
	Regions() (ids []ID, err error)
}

// ITxn is a read-write transaction across all regions.
type ITxn interface {
	IView
	// Writer returns read-write access to region id within this transaction.
	Writer(id ID) IWriter
}

// ISnapshot is a detached view that must be released after use.
type ISnapshot interface {
	IView
	Release() (err error)
}

// IMedium is the backing storage of a region manager.
// Implementations must serialize Update calls and must isolate snapshots
// from writes committed after the snapshot was taken.
type IMedium interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// no write made through tx becomes visible and the error is returned.
	Update(fn func(tx ITxn) error) (err error)

	// Snapshot opens a consistent read view of all committed data.
	Snapshot() (snap ISnapshot, err error)

	// SupportsFeature checks if the medium supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the medium.
	GetInfo() (info Info)

	// Close releases all resources held by the medium.
	Close() (err error)
}

// Factory creates a new medium.
// A factory error is fatal for whatever was about to use the medium.
type Factory func() (IMedium, error)
