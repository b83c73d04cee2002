package server

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/ValentinKolb/dTravel/rpc/serializer"
	"github.com/ValentinKolb/dTravel/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTransport records the handler instead of listening
type captureTransport struct {
	handler transport.ServerHandleFunc
}

func (c *captureTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	c.handler = handler
}

func (c *captureTransport) Listen(common.ServerConfig) error {
	return nil
}

func (c *captureTransport) Shutdown(context.Context) error {
	return nil
}

func startServer(t *testing.T, medium string, shards ...uint64) (*captureTransport, serializer.IRPCSerializer) {
	config := common.ServerConfig{
		Medium:   medium,
		DataDir:  t.TempDir(),
		LogLevel: "error",
	}
	for _, id := range shards {
		config.Shards = append(config.Shards, common.ServerShard{ShardID: id, Type: common.ShardTypeLocal})
	}

	ct := &captureTransport{}
	s := serializer.NewBinarySerializer()
	srv := NewRPCServer(config, ct, s)
	require.NoError(t, srv.Serve())
	t.Cleanup(func() { assert.NoError(t, srv.Shutdown(context.Background())) })
	return ct, s
}

func call(t *testing.T, ct *captureTransport, s serializer.IRPCSerializer, shardId uint64, req *common.Message) common.Message {
	t.Helper()
	raw, err := s.Serialize(*req)
	require.NoError(t, err)
	var resp common.Message
	require.NoError(t, s.Deserialize(ct.handler(shardId, raw), &resp))
	return resp
}

func TestMediumFactory(t *testing.T) {
	for _, medium := range []string{"pebble", "sqlite", "maple"} {
		factory, err := MediumFactory(medium, t.TempDir())
		require.NoError(t, err, medium)

		m, err := factory()
		require.NoError(t, err, medium)
		assert.Equal(t, region.Implementation(medium), m.GetInfo().Impl)
		assert.NoError(t, m.Close())
	}

	_, err := MediumFactory("redis", t.TempDir())
	assert.Error(t, err)
}

func TestShardsAreIsolated(t *testing.T) {
	ct, s := startServer(t, "pebble", 100, 200)

	resp := call(t, ct, s, 100, common.NewCreateRequest(travel.Payload{Destination: "Rome"}))
	require.NoError(t, resp.AsError())
	assert.Equal(t, uint64(1), resp.Record.ID)

	resp = call(t, ct, s, 100, common.NewCountRequest())
	assert.Equal(t, uint64(1), resp.Count)
	resp = call(t, ct, s, 200, common.NewCountRequest())
	assert.Equal(t, uint64(0), resp.Count)

	// ids are per shard
	resp = call(t, ct, s, 200, common.NewCreateRequest(travel.Payload{Destination: "Oslo"}))
	require.NoError(t, resp.AsError())
	assert.Equal(t, uint64(1), resp.Record.ID)
}

func TestHandlerErrors(t *testing.T) {
	ct, s := startServer(t, "maple", 100)

	resp := call(t, ct, s, 999, common.NewCountRequest())
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "shard 999 not found")

	var garbage common.Message
	require.NoError(t, s.Deserialize(ct.handler(100, []byte{1}), &garbage))
	assert.Equal(t, common.MsgTError, garbage.MsgType)

	resp = call(t, ct, s, 100, &common.Message{MsgType: common.MsgTSuccess})
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "Unsupported message type")

	// a missing payload creates an empty record
	resp = call(t, ct, s, 100, &common.Message{MsgType: common.MsgTCreate})
	require.NoError(t, resp.AsError())
	assert.Equal(t, uint64(1), resp.Record.ID)

	resp = call(t, ct, s, 100, common.NewReadRequest(5))
	assert.Equal(t, travel.RetCNotFound, resp.Code)
	assert.Equal(t, travel.ErrReadNotFound(5).Msg, resp.Err)
}

func TestInvalidConfig(t *testing.T) {
	config := common.ServerConfig{
		Shards:   []common.ServerShard{{ShardID: 1, Type: common.ShardTypeLocal}},
		Medium:   "nope",
		DataDir:  t.TempDir(),
		LogLevel: "error",
	}
	srv := NewRPCServer(config, &captureTransport{}, serializer.NewJSONSerializer())
	assert.Error(t, srv.Serve())

	config.Medium = "maple"
	config.Shards = []common.ServerShard{{ShardID: 1, Type: "lock"}}
	srv = NewRPCServer(config, &captureTransport{}, serializer.NewJSONSerializer())
	assert.Error(t, srv.Serve())
}
