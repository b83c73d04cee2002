// Package pebbledb implements a durable region medium on top of
// github.com/cockroachdb/pebble.
//
// All regions share one pebble keyspace. A key is the region id byte followed
// by the 8 byte big endian region key, so a bounded pebble iterator over one
// prefix yields the region in ascending key order.
//
// Update uses an indexed batch: reads inside the transaction see its own
// writes, and the batch is committed with pebble.Sync once the transaction
// function succeeds. A failed transaction closes the batch without committing,
// nothing reaches disk. Snapshots are pebble snapshots.
package pebbledb
