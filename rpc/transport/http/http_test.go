package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dTravel/rpc/common"
)

// newTestServer starts the mux of a server transport that echoes shard id and body
func newTestServer(t *testing.T) *httptest.Server {
	st := &httpServerTransport{config: common.ServerConfig{LogLevel: "debug"}}
	st.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte{byte(shardId)}, req...)
	})
	srv := httptest.NewServer(st.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func connect(t *testing.T, endpoints ...string) *httpClientTransport {
	ct := NewHttpClientTransport().(*httpClientTransport)
	if err := ct.Connect(common.ClientConfig{Endpoints: endpoints, TimeoutSecond: 5, RetryCount: 2}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = ct.Close() })
	return ct
}

func TestSend(t *testing.T) {
	srv := newTestServer(t)
	ct := connect(t, srv.URL)

	resp, err := ct.Send(7, []byte("hello"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, append([]byte{7}, "hello"...)) {
		t.Errorf("Unexpected response %q", resp)
	}
}

func TestSendConcurrent(t *testing.T) {
	srv := newTestServer(t)
	ct := connect(t, srv.URL, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := ct.Send(uint64(i), []byte("x"))
			if err != nil {
				t.Errorf("Send failed: %v", err)
				return
			}
			if resp[0] != byte(i) {
				t.Errorf("Response for shard %d routed to shard %d", i, resp[0])
			}
		}(i)
	}
	wg.Wait()
}

func TestRetryOnUnreachableEndpoint(t *testing.T) {
	srv := newTestServer(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	// every request fails on the dead endpoint first and is retried on the live one
	ct := connect(t, srv.URL, dead.URL)
	for i := 0; i < 4; i++ {
		if _, err := ct.Send(1, []byte("x")); err != nil {
			t.Errorf("Send %d failed: %v", i, err)
		}
	}
}

func TestInvalidShardID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/abc", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Errorf("Response carries no request id")
	}
}

func TestRequestIDEcho(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/1", strings.NewReader("x"))
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Request id = %q, want abc-123", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ct := connect(t, srv.URL)
	if _, err := ct.Send(1, []byte("x")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "dtravel_http_requests_total") {
		t.Errorf("Metrics miss the request counter:\n%s", body)
	}
}

func TestSendWithoutConnect(t *testing.T) {
	ct := NewHttpClientTransport()
	if _, err := ct.Send(1, nil); err == nil {
		t.Errorf("Expected an error before Connect")
	}
	if err := ct.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected an error without endpoints")
	}
}

func TestShutdown(t *testing.T) {
	st := NewHttpServerTransport().(*httpServerTransport)
	st.RegisterHandler(func(uint64, []byte) []byte { return nil })

	done := make(chan error, 1)
	go func() { done <- st.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}) }()

	// wait until the server exists
	deadline := time.Now().Add(5 * time.Second)
	for {
		st.mu.Lock()
		started := st.server != nil
		st.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := st.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Listen did not return after shutdown")
	}

	// a transport that was shut down does not listen again
	if err := st.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}); err != nil {
		t.Errorf("Listen after shutdown returned %v", err)
	}
}
