// Package internal provides the communication protocol structures and serialization
// logic for the dservice package. It defines the wire format used to transmit
// operations between the service client and the replicated state machine.
//
// This package is intended for internal use by the dservice implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines the mutating operations (Create, Replace, UpdateDate,
//     Delete). Commands are serialized and proposed to the RAFT cluster, executed on
//     the state machine, and produce results that are returned to the client.
//
//   - Query System: Defines the read-only operations (Read, All, Latest, ...). Queries
//     are executed locally on the state machine and therefore do not require
//     serialization.
//
// Command Format:
//
//	- 1 byte: Command type (Create, Replace, UpdateDate, Delete)
//	- 8 bytes: Record id (uint64, big endian, 0 for Create)
//	- 8 bytes: Date (uint64, big endian, only used by UpdateDate)
//	- N bytes: Payload in the travel record encoding (only Create and Replace)
//
//	The payload is not checked against travel.MaxRecordSize here. The bound is
//	enforced when the command is applied, so an oversized payload fails the same
//	way on every replica.
//
// Result Format:
//
//	The state machine answers every command with the travel.RetCode as result value.
//	On success the result data holds the affected record in the travel record
//	encoding, otherwise the error message.
package internal
