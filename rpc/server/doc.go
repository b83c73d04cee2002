// Package server implements the RPC server of the travel experience service.
// It manages the shards of a node and routes every request to the service of its shard.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a service.IService.
//
//   - NewServiceServerAdapter: Factory function creating an adapter that translates
//     RPC requests to service.IService method calls. It counts every request per
//     operation and return code and records its duration (VictoriaMetrics).
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
//   - MediumFactory: Maps the configured medium name to a region.Factory.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeLocal},
//	  },
//	  Medium: "pebble",
//	  DataDir: "data",
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports two types of shards, which can be mixed within a single server:
//
//   - ShardTypeLocal: a local service on the configured medium, stored in its own
//     directory below the data dir.
//
//   - ShardTypeRaft: a replicated service using Raft consensus. The RAFT configuration
//     (RTTMillisecond, SnapshotEntries, CompactionOverhead, DataDir, ReplicaID and
//     ClusterMembers) must be set. The state machine keeps its records in memory
//     and is rebuilt from the raft snapshots and log on restart.
//
// Thread Safety:
//
//	The server handles concurrent requests, each request is processed independently.
//	Serve is not thread-safe and should be called only once.
package server
