// Package common provides core data structures and utilities shared across
// the RPC layer of the travel experience service. It defines the message
// protocol, the configuration structures and the logger used by the server,
// the client and the transports.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. Requests carry
//     the operation arguments (id, date, payload, ...), responses carry the
//     resulting record, list of records or count, plus the travel.RetCode and
//     message of a failed operation so the client can rebuild the typed error.
//
//   - MessageType: Enumeration of all supported operations, split into
//     mutations, queries and the service information request.
//
//   - ServerConfig: Configuration for server nodes, including the served shards,
//     the storage medium, RAFT parameters and network settings.
//     Provides utilities for converting to Dragonboat-specific configurations.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
