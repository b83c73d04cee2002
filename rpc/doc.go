// Package rpc provides the remote procedure call layer of the travel experience
// service. It acts as the communication layer between clients and servers,
// enabling every service operation across network boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with an HTTP implementation.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC client implementing the service.IService interface,
//     allowing applications to interact with remote shards transparently.
//
//   - server: RPC server components that handle incoming requests and route
//     them to the local or replicated service of a shard.
package rpc
