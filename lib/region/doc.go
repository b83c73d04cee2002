// Package region partitions a storage medium into disjoint, durable regions.
//
// A region is an ordered map from uint64 keys to byte values. Regions are
// addressed by a small integer (ID); the record service uses IDCounter for
// its identifier counter and IDRecords for the record map. Writes to one
// region never affect another.
//
// Key Components:
//
//   - IMedium: the pluggable backing storage. Implementations live in
//     region/engines (maple: in-memory copy-on-write B-trees, pebbledb:
//     a pebble LSM on disk, sqlitedb: a SQLite file in WAL mode).
//     Feature flags (FeatureDurable, FeatureSnapshotRead, FeatureAtomicBatch)
//     describe what a medium guarantees.
//
//   - Manager: constructed once per medium. Region(id) returns the same
//     Handle for the same id for the lifetime of the manager. Update runs a
//     function inside one atomic transaction spanning all regions, an error
//     discards every write of that transaction. View runs a function against
//     a consistent snapshot.
//
//   - Snapshot format: WriteSnapshot/ReadSnapshot move the complete content
//     of a medium through an io.Writer/io.Reader. The stream ends with a
//     BLAKE3 digest so that truncated or corrupted snapshots are rejected
//     before they replace any data. Raft snapshots of the replicated service
//     use this format.
//
// Values handed out by readers are copies owned by the caller.
package region
