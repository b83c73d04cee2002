// Package maple implements an in-memory region medium (region.IMedium) on top of
// copy-on-write B-trees from github.com/google/btree.
//
// Every region is one B-tree ordered by key. The committed trees are treated as
// immutable:
//
//   - Update clones a region lazily the first time the transaction writes to it.
//     Cloning is O(1), nodes are copied only when a shared node is modified.
//     When the transaction function succeeds the clones replace the committed
//     trees under a short lock, when it fails they are simply dropped. This
//     gives all-or-nothing commits without an undo log.
//
//   - Snapshot copies the map of committed tree pointers. Since committed trees
//     are never written again, a snapshot stays consistent for as long as it is
//     held and never blocks writers.
//
// Transactions are serialized by a mutex. Reads inside a transaction observe its
// own writes.
//
// maple does not report region.FeatureDurable: its content lives only in memory.
// The replicated service uses it as the state of the raft state machine, where
// durability comes from the raft log and from snapshots written with
// region.WriteSnapshot.
package maple
