// Package sqlitedb implements a durable region medium on a single SQLite file,
// using the pure Go driver modernc.org/sqlite.
//
// All regions live in one WITHOUT ROWID table keyed by (region, key). Keys are
// stored as 8 byte big endian blobs so that SQLite's blob ordering matches the
// numeric key order.
//
// The database runs in WAL mode with synchronous=FULL: a committed Update is on
// disk, and readers never block the writer. Update maps to one SQL transaction
// that is rolled back when the transaction function fails. A snapshot is a read
// transaction whose WAL snapshot is pinned by an initial query, it holds one
// pooled connection until it is released.
package sqlitedb
