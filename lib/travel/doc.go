// Package travel defines the travel experience record, its bounded binary
// encoding and the typed errors shared by every layer of dTravel.
//
// A Record is the unit stored by the record service. It is identified by a
// numeric id that is assigned once on creation and never reused. Callers never
// choose ids: they hand a Payload (every field except the id) to the service,
// which allocates the id and stores the record.
//
// Records are encoded into a compact big endian format (see Record.AppendBinary).
// A stored record must not exceed MaxRecordSize bytes once encoded. Encode
// enforces this bound and reports an EncodingFault, the wire layers use the
// unbounded AppendBinary/Deserialize pair so that an oversized payload still
// reaches the service and is rejected there with a proper error code.
//
// Errors crossing layer boundaries are *Error values carrying a RetCode. The
// code survives the RPC and Raft layers so a caller can always distinguish a
// missing record (RetCNotFound) from a fault.
//
// Sub-packages implement the storage roles on top of lib/region:
//   - alloc: the identifier allocator (persistent monotonic counter)
//   - records: the ordered id -> record map
//   - query: read-only projections over a consistent view
//   - crud: the orchestrator combining allocator and record map
package travel
