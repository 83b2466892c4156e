package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/bridge"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet/simnet"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeout = 5 * time.Second

type fixture struct {
	node   *bridge.Node
	stack  *simnet.Node
	server *Server
	http   *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// newFixture runs a bridge on an in-process network behind a test server
func newFixture(t *testing.T, config *Config) *fixture {
	t.Helper()
	net := simnet.New(simnet.WithInterval(2 * time.Millisecond))
	stack, err := net.NewNode()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	node, err := bridge.New(stack, &bridge.Config{Nospam: stack.Nospam(), Metrics: bridge.NewMetrics(reg)})
	require.NoError(t, err)

	if config == nil {
		config = DefaultConfig()
		config.RateLimit = 0
	}
	config.Gatherer = reg

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{node: node, stack: stack, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(f.done)
		_ = node.Run(ctx)
	}()

	f.server = NewServer(node, config)
	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(func() {
		f.http.Close()
		f.stop()
	})
	return f
}

func (f *fixture) stop() {
	f.cancel()
	<-f.done
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// roundTrip writes one frame and returns the next response, skipping events
func roundTrip(t *testing.T, conn *websocket.Conn, frame string) protocol.Response {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		resp, _, err := protocol.DecodeServerMessage(data)
		require.NoError(t, err)
		if resp != nil {
			return resp
		}
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	f.stop()

	w = httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stopped", resp.Status)
}

func TestNodeInfo(t *testing.T) {
	f := newFixture(t, nil)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/node/info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp NodeInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, f.stack.SelfPublicKey().String(), resp.PublicKey)
	assert.Equal(t, 0, resp.Friends)
	assert.Len(t, resp.Address, 76)
}

func TestNodeInfoAfterStop(t *testing.T) {
	f := newFixture(t, nil)
	f.stop()

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/node/info", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Node unavailable")
}

func TestWebSocketRequests(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dial(t)

	assert.Equal(t, &protocol.OkResponse{}, roundTrip(t, conn, `{"request":"SetName","name":"Alice"}`))
	assert.Equal(t, &protocol.NameResponse{Name: "Alice"}, roundTrip(t, conn, `{"request":"GetName"}`))
	assert.Equal(t,
		&protocol.MalformedRequestResponse{Error: protocol.MalformedInvalidJSON},
		roundTrip(t, conn, `nope`))
	assert.Equal(t,
		&protocol.MalformedRequestResponse{Error: protocol.MalformedUnknownRequest},
		roundTrip(t, conn, `{"request":"Teleport"}`))

	// the connection stays usable after a rejected frame
	assert.Equal(t,
		&protocol.PublicKeyResponse{PublicKey: f.stack.SelfPublicKey().String()},
		roundTrip(t, conn, `{"request":"GetPublicKey"}`))
}

func TestWebSocketReceivesEvents(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dial(t)

	// the node comes online on its first iteration
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		_, ev, err := protocol.DecodeServerMessage(data)
		require.NoError(t, err)
		if status, ok := ev.(*protocol.ConnectionStatusEvent); ok {
			assert.NotEqual(t, protocol.ConnectionNone, status.Status)
			return
		}
	}
}

func TestWebSocketSessionsAreCounted(t *testing.T) {
	f := newFixture(t, nil)
	first := f.dial(t)
	second := f.dial(t)
	roundTrip(t, first, `{"request":"GetName"}`)
	roundTrip(t, second, `{"request":"GetName"}`)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	info, err := f.node.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Sessions)

	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool {
		info, err := f.node.Info(ctx)
		return err == nil && info.Sessions == 1
	}, timeout, 10*time.Millisecond)
}

func TestWebSocketClosedWhenNodeStops(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dial(t)
	roundTrip(t, conn, `{"request":"GetName"}`)

	f.stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return
		}
	}
}

func TestWebSocketRefusedAfterStop(t *testing.T) {
	f := newFixture(t, nil)
	f.stop()

	conn := f.dial(t)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "unexpected error: %v", err)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dial(t)
	roundTrip(t, conn, `{"request":"GetName"}`)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `toxbridge_requests_total{request="GetName",response="Name"} 1`)
	assert.Contains(t, w.Body.String(), "toxbridge_sessions 1")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/node/info", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	config := DefaultConfig()
	config.RateLimit = 0.001
	config.RateBurst = 2
	f := newFixture(t, config)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		f.server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	rl.sweep(time.Now().Add(time.Hour))
	assert.True(t, rl.Allow("10.0.0.1"))
}
