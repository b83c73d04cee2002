// Package service provides the public operation surface of the travel record
// store and the contract shared by all of its implementations.
//
// The package focuses on:
//   - A unified interface (IService) for the create/read/update/delete and
//     query operations, independent of where the data lives
//   - A typed error system (travel.Error) whose return codes survive every
//     layer, so a NotFound raised by the orchestrator reaches a remote caller
//     as a NotFound
//
// Implementations:
//
//	- Local Service (lservice): runs the orchestrator and query engine of a
//	  single region.Manager in process. Durable when the manager is backed by
//	  the pebble or sqlite medium.
//	  Available in the "github.com/ValentinKolb/dTravel/lib/service/lservice" package.
//
//	- Distributed Service (dservice): replicates every mutating call through the
//	  Dragonboat RAFT library. Each replica applies the log to its own manager,
//	  so all replicas hand out the same ids in the same order.
//	  Available in the "github.com/ValentinKolb/dTravel/lib/service/dservice" package.
//
// The service/testing package holds a conformance suite both implementations
// (and the rpc client) are tested with.
package service
