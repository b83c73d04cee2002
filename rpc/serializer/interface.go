package serializer

import "github.com/ValentinKolb/dTravel/rpc/common"

// IRPCSerializer converts Messages to bytes and back.
// Implementations are stateless and safe for concurrent use.
type IRPCSerializer interface {
	// Serialize encodes a Message
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes exactly one Message from b into msg.
	// All fields of msg are overwritten, trailing bytes are an error.
	Deserialize(b []byte, msg *common.Message) error
}
