// Package dservice implements a replicated travel record service using the
// Dragonboat RAFT consensus library. It provides a strongly consistent
// implementation of the service.IService interface that can operate across
// multiple nodes.
//
// Architecture:
//
//   - Service Client: Implements service.IService. Mutating calls are serialized
//     into commands and proposed to the RAFT cluster, read-only calls are sent as
//     queries to the local replica.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine. Every replica owns its
//     own region.Manager with a crud.Orchestrator and a query.Engine and applies
//     the committed commands to them.
//
//   - Communication Protocol: Defined in the internal package.
//
// Write Operations:
//
//	Create, Replace, UpdateDate and Delete follow this flow:
//
//	1. The operation is serialized into a Command structure
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. Once committed, every replica applies it through its orchestrator (Update in statemachine.go)
//	4. The result (return code and affected record) is returned to the client
//
//	Since a Create is a single log entry, allocating the id and storing the record
//	happen in one step on every replica, and all replicas hand out the same ids.
//	A command that fails with a fatal fault (for example an oversized record) fails
//	identically on every replica and leaves their state unchanged.
//
// Read Operations:
//
//   - Linearizable Reads: all record queries use SyncRead, so they observe every
//     write that completed before they started.
//
//   - Stale Reads: GetInfo uses StaleRead, which may return slightly outdated
//     information but with lower latency.
//
// Error Handling and Retries:
//
//	When Dragonboat returns ErrSystemBusy, the operation is retried after a short
//	delay, up to 5 attempts. The travel.RetCode of a failed command is transported
//	as the result value, so a NotFound on the replica is a NotFound for the caller.
//
// Snapshotting and Recovery:
//
//	PrepareSnapshot takes a checkpoint of the medium, SaveSnapshot streams it in the
//	region snapshot format while new commands are applied. On restart a replica loads
//	the latest snapshot and replays the log after it. The medium of the state machine
//	must therefore start empty, the maple medium is the natural choice.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    dservice.CreateStateMachineFactory(maple.Factory(nil)),
//	    shardConfig)
//	if err != nil { ... }
//
//	svc := dservice.NewDistributedService(nh, shardID, 5*time.Second)
//
// For single-node deployments the lservice package provides the same interface
// without consensus overhead, durably when backed by pebble or sqlite.
package dservice
