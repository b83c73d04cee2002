// Package util provides small helpers shared by the record service and its tooling.
//
// The package contains:
//   - functions: FNV-1a string hashing used to derive numeric replica ids from node names
//   - statistics: a SizeHistogram tracking the encoded size distribution of travel records
//     against the fixed 2048 byte record bound
package util
