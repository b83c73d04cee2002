// Package cmd implements the command-line interface of dTravel, the durable
// store for travel experiences. It provides a hierarchical command structure
// with operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - exp: Commands for travel experience operations (create, get, list, latest, etc.)
//     and a performance test against a running server
//   - serve: Commands for starting and configuring the dTravel server
//   - util: Shared utilities for command-line processing, configuration and output (internal use)
//
// See dtravel -help for a list of all commands.
package cmd
