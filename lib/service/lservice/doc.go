// Package lservice implements a local, single-node travel record service based
// on the service.IService interface. It is a thin wrapper that wires one
// region.Manager to a crud.Orchestrator and a query.Engine.
//
// Whether the data survives a restart depends on the medium: the pebble and
// sqlite mediums commit every mutation durably, the maple medium keeps
// everything in memory.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Mutations are serialized by the
//	orchestrator, reads run on snapshots and are never blocked by writers.
//
// Usage Example:
//
//	svc, err := lservice.NewLocalService(pebbledb.Factory("/var/lib/dtravel", nil))
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	rec, err := svc.Create(travel.Payload{Destination: "Rome", Date: 1700000000})
package lservice
