package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/service"
	servicetesting "github.com/ValentinKolb/dTravel/lib/service/testing"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/ValentinKolb/dTravel/rpc/serializer"
	"github.com/ValentinKolb/dTravel/rpc/server"
	"github.com/ValentinKolb/dTravel/rpc/transport"
	rpchttp "github.com/ValentinKolb/dTravel/rpc/transport/http"
)

const testShard = 100

// loopback connects a client directly to the handler of a server
type loopback struct {
	handler transport.ServerHandleFunc
}

func (l *loopback) RegisterHandler(handler transport.ServerHandleFunc) { l.handler = handler }
func (l *loopback) Listen(common.ServerConfig) error                  { return nil }
func (l *loopback) Connect(common.ClientConfig) error                 { return nil }
func (l *loopback) Close() error                                      { return nil }
func (l *loopback) Shutdown(context.Context) error                    { return nil }
func (l *loopback) Send(shardId uint64, req []byte) ([]byte, error) {
	return l.handler(shardId, req), nil
}

// handlerOnly registers the handler on a server transport without listening
type handlerOnly struct {
	transport.IRPCServerTransport
}

func (handlerOnly) Listen(common.ServerConfig) error { return nil }

// startServer serves one local maple shard through st
func startServer(t testing.TB, st transport.IRPCServerTransport, s serializer.IRPCSerializer) {
	srv := server.NewRPCServer(common.ServerConfig{
		Shards:   []common.ServerShard{{ShardID: testShard, Type: common.ShardTypeLocal}},
		Medium:   "maple",
		DataDir:  t.TempDir(),
		LogLevel: "error",
	}, st, s)
	if err := srv.Serve(); err != nil {
		t.Fatalf("cannot start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
}

func TestRPCService(t *testing.T) {
	for name, factory := range map[string]func() serializer.IRPCSerializer{
		"JSON":   serializer.NewJSONSerializer,
		"GOB":    serializer.NewGOBSerializer,
		"Binary": serializer.NewBinarySerializer,
	} {
		servicetesting.RunServiceTests(t, "Loopback"+name, func(tb testing.TB) service.IService {
			lb := &loopback{}
			startServer(tb, lb, factory())
			svc, err := NewRPCService(testShard, common.ClientConfig{}, lb, factory())
			if err != nil {
				tb.Fatalf("cannot create client: %v", err)
			}
			return svc
		})
	}

	servicetesting.RunServiceTests(t, "HTTP", func(tb testing.TB) service.IService {
		st := rpchttp.NewHttpServerTransport()
		startServer(tb, handlerOnly{st}, serializer.NewBinarySerializer())
		ts := httptest.NewServer(st.(interface{ Handler() http.Handler }).Handler())
		tb.Cleanup(ts.Close)

		svc, err := NewRPCService(testShard, common.ClientConfig{
			Endpoints:     []string{ts.URL},
			TimeoutSecond: 5,
			RetryCount:    1,
		}, rpchttp.NewHttpClientTransport(), serializer.NewBinarySerializer())
		if err != nil {
			tb.Fatalf("cannot create client: %v", err)
		}
		return svc
	})
}

func TestUnknownShard(t *testing.T) {
	lb := &loopback{}
	startServer(t, lb, serializer.NewJSONSerializer())

	svc, err := NewRPCService(testShard+1, common.ClientConfig{}, lb, serializer.NewJSONSerializer())
	if err != nil {
		t.Fatalf("cannot create client: %v", err)
	}
	if _, err := svc.Count(); travel.CodeOf(err) != travel.RetCInternalError {
		t.Errorf("expected an internal error for an unknown shard, got %v", err)
	}
}

// mismatched answers every request with a response of another type
type mismatched struct{ loopback }

func (m *mismatched) Send(_ uint64, _ []byte) ([]byte, error) {
	return serializer.NewJSONSerializer().Serialize(common.Message{MsgType: common.MsgTCount, Count: 1})
}

func TestUnexpectedResponseType(t *testing.T) {
	svc, err := NewRPCService(testShard, common.ClientConfig{}, &mismatched{}, serializer.NewJSONSerializer())
	if err != nil {
		t.Fatalf("cannot create client: %v", err)
	}
	if _, err := svc.Read(1); travel.CodeOf(err) != travel.RetCInternalError {
		t.Errorf("expected an internal error, got %v", err)
	}
	if n, err := svc.Count(); err != nil || n != 1 {
		t.Errorf("Count = %d, %v", n, err)
	}
}
