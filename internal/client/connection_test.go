package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/models"
	"github.com/afroash/multisensor/internal/monitor"
	"github.com/afroash/multisensor/internal/sensor"
	"github.com/afroash/multisensor/internal/server"
)

const testToken = "test-token-123"

// feedServer runs a real session and feed behind an httptest server
type feedServer struct {
	server  *httptest.Server
	monitor *server.Serialized
	feed    *server.Feed
}

func newFeedServer(t *testing.T, opts server.FeedOptions) *feedServer {
	t.Helper()
	temp, err := sensor.NewTemperatureSensor("Temperature", 31, 31)
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}
	reg, err := sensor.NewRegistry(temp)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	m := server.NewSerialized(monitor.NewSession(reg, zerolog.Nop()))
	feed := server.NewFeed(testToken, m, zerolog.Nop(), opts)
	m.Subscribe(feed)

	mux := http.NewServeMux()
	mux.Handle("/feed", feed)
	fs := &feedServer{server: httptest.NewServer(mux), monitor: m, feed: feed}
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) URL() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http") + "/feed"
}

func (fs *feedServer) Close() {
	fs.feed.Close()
	fs.server.Close()
}

// Helper to create test connection
func createTestConnection(serverURL string, token string) (*Connection, *EventBuffer) {
	config := ConnectionConfig{
		URL:                  serverURL,
		AuthToken:            token,
		ConnectTimeout:       time.Second,
		ReconnectInterval:    50 * time.Millisecond,
		MaxReconnectInterval: 200 * time.Millisecond,
		PongTimeout:          2 * time.Second,
	}
	events := NewEventBuffer(100, true)
	return NewConnection(config, events, zerolog.Nop()), events
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewConnection(t *testing.T) {
	conn, _ := createTestConnection("ws://localhost:1/feed", testToken)

	if conn.State() != StateDisconnected {
		t.Errorf("Initial state = %v, want %v", conn.State(), StateDisconnected)
	}
	if conn.IsConnected() {
		t.Error("IsConnected should be false initially")
	}
	if conn.currentReconnectInterval != 50*time.Millisecond {
		t.Errorf("initial backoff = %v, want 50ms", conn.currentReconnectInterval)
	}
}

func TestNewConnection_Defaults(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "ws://x"}, NewEventBuffer(1, true), zerolog.Nop())

	if conn.connectTimeout != 10*time.Second {
		t.Errorf("connectTimeout = %v, want 10s", conn.connectTimeout)
	}
	if conn.reconnectInterval != time.Second || conn.maxReconnectInterval != time.Second {
		t.Errorf("backoff = %v..%v, want 1s..1s", conn.reconnectInterval, conn.maxReconnectInterval)
	}
}

func TestConnection_Connect_Success(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, _ := createTestConnection(srv.URL(), testToken)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	if conn.State() != StateConnected {
		t.Errorf("State = %v, want %v", conn.State(), StateConnected)
	}
}

func TestConnection_Connect_Failure_InvalidURL(t *testing.T) {
	conn, _ := createTestConnection("ws://invalid-url-that-does-not-exist:9999/feed", testToken)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err == nil {
		t.Error("Connect should fail with invalid URL")
	}
	if conn.IsConnected() {
		t.Error("Should not be connected after failed Connect()")
	}
}

func TestConnection_Connect_Failure_BadToken(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, _ := createTestConnection(srv.URL(), "wrong-token")

	err := conn.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect should fail with a bad token")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want it to mention status 401", err)
	}
}

func TestConnection_ReceivesEvents(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, events := createTestConnection(srv.URL(), testToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	waitFor(t, "subscription", func() bool { return srv.feed.Count() == 1 })
	if _, err := srv.monitor.ConfigureThreshold("Temperature", 30, models.DirectionOver); err != nil {
		t.Fatalf("ConfigureThreshold failed: %v", err)
	}
	srv.monitor.TakeReadings()

	// hello, threshold, measurement, alarm
	waitFor(t, "four events", func() bool { return events.Size() >= 4 })

	got := events.PopBatch(4)
	want := []models.MessageType{
		models.MessageTypeHello,
		models.MessageTypeThreshold,
		models.MessageTypeMeasurement,
		models.MessageTypeAlarm,
	}
	for i, wt := range want {
		if got[i].Type != wt {
			t.Errorf("event %d type = %v, want %v", i, got[i].Type, wt)
		}
	}
	if conn.SessionID() != srv.monitor.ID() {
		t.Errorf("SessionID = %q, want %q", conn.SessionID(), srv.monitor.ID())
	}
}

func TestConnection_Reconnect_AfterServerClose(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, events := createTestConnection(srv.URL(), testToken)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go conn.Run(ctx)

	waitFor(t, "first subscription", func() bool { return srv.feed.Count() == 1 })

	// drop every subscriber from the server side
	srv.feed.Close()

	// a second hello proves the client came back
	waitFor(t, "second hello", func() bool {
		hellos := 0
		for _, msg := range events.Peek(events.Size()) {
			if msg.Type == models.MessageTypeHello {
				hellos++
			}
		}
		return hellos >= 2
	})
	if !conn.IsConnected() {
		t.Error("Should have reconnected after disconnect")
	}
}

func TestConnection_RunStopsOnCancel(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, _ := createTestConnection(srv.URL(), testToken)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	waitFor(t, "subscription", func() bool { return srv.feed.Count() == 1 })
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	waitFor(t, "unsubscribe", func() bool { return srv.feed.Count() == 0 })
}

func TestConnection_ExponentialBackoff(t *testing.T) {
	conn, _ := createTestConnection("ws://localhost:1/feed", testToken)
	ctx := context.Background()

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		200 * time.Millisecond, // capped
	}
	for i, w := range want {
		conn.waitBeforeReconnect(ctx)
		if conn.currentReconnectInterval != w {
			t.Errorf("after wait %d: interval = %v, want %v", i+1, conn.currentReconnectInterval, w)
		}
	}
}

func TestConnection_BackoffResetsOnConnect(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, _ := createTestConnection(srv.URL(), testToken)
	conn.currentReconnectInterval = conn.maxReconnectInterval

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	if conn.currentReconnectInterval != conn.reconnectInterval {
		t.Errorf("interval = %v, want reset to %v", conn.currentReconnectInterval, conn.reconnectInterval)
	}
}

func TestConnection_AnswersServerPings(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{
		PingInterval: 50 * time.Millisecond,
		PongWait:     200 * time.Millisecond,
	})
	conn, _ := createTestConnection(srv.URL(), testToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	waitFor(t, "subscription", func() bool { return srv.feed.Count() == 1 })

	// several pong windows pass; the server keeps the subscriber only if pongs arrive
	time.Sleep(600 * time.Millisecond)
	subs := srv.feed.Subscribers()
	if len(subs) != 1 {
		t.Fatalf("subscribers = %d, want 1", len(subs))
	}
	if time.Since(subs[0].ConnectedAt) < 500*time.Millisecond {
		t.Error("subscriber was dropped and reconnected; pongs were not sent")
	}
}

func TestConnection_DeadConnectionTimesOut(t *testing.T) {
	// a server that accepts and then never speaks
	upgrader := websocket.Upgrader{}
	silent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		time.Sleep(2 * time.Second)
	}))
	defer silent.Close()

	conn, _ := createTestConnection("ws"+strings.TrimPrefix(silent.URL, "http"), testToken)
	conn.pongTimeout = 100 * time.Millisecond

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	errc := make(chan error, 1)
	go func() { errc <- conn.readLoop(context.Background()) }()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("readLoop returned nil, want a timeout error")
		}
	case <-time.After(time.Second):
		t.Fatal("readLoop did not time out on a silent connection")
	}
}

func TestConnection_CloseGracefully(t *testing.T) {
	srv := newFeedServer(t, server.FeedOptions{})
	conn, _ := createTestConnection(srv.URL(), testToken)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if conn.IsConnected() {
		t.Error("Should not be connected after Close()")
	}

	// Run must not reconnect a closed connection
	if err := conn.Run(context.Background()); err != nil {
		t.Errorf("Run after Close = %v, want nil", err)
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{ConnectionState(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
