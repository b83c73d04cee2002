package transport

import (
	"context"

	"github.com/ValentinKolb/dTravel/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one encoded request for a shard and returns the encoded response.
// Failures are part of the response message, the transport only moves bytes.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the server side of a transport
type IRPCServerTransport interface {
	// RegisterHandler sets the function every received request is passed to.
	// It must be called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves requests on config.Endpoint until Shutdown is called.
	// It returns nil after a shutdown.
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting requests and waits for the running ones until ctx is done
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the client side of a transport, safe for concurrent use after Connect
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send delivers an encoded request to the given shard and returns the encoded response
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close releases the connections of the transport
	Close() error
}
