package channel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/protocol"
)

// fakeServer accepts connections, records every frame it reads and lets the
// test push frames or drop the current connection.
type fakeServer struct {
	mu     sync.Mutex
	frames []map[string]any
	conns  chan *websocket.Conn
	srv    *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{conns: make(chan *websocket.Conn, 4)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- c
		for {
			var m map[string]any
			if err := wsjson.Read(r.Context(), c, &m); err != nil {
				return
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, m)
			fs.mu.Unlock()
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string { return "ws" + strings.TrimPrefix(fs.srv.URL, "http") }

func (fs *fakeServer) waitFrames(t *testing.T, n int) []map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		fs.mu.Lock()
		if len(fs.frames) >= n {
			out := append([]map[string]any(nil), fs.frames...)
			fs.mu.Unlock()
			return out
		}
		fs.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames", n)
	return nil
}

func (fs *fakeServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatalf("no connection")
		return nil
	}
}

func TestWebSocketJoinSendReceive(t *testing.T) {
	fs := newFakeServer(t)
	ws := NewWebSocket(Options{URL: fs.url(), SessionKey: "sk-1", RoomCode: "ROOM1"})
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	events := make(chan protocol.Event, 4)
	ws.OnMessage(func(ev protocol.Event) { events <- ev })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := fs.nextConn(t)

	frames := fs.waitFrames(t, 1)
	join := frames[0]
	if join["type"] != "join" || join["sessionKey"] != "sk-1" || join["roomCode"] != "ROOM1" {
		t.Fatalf("first frame must be join, got %v", join)
	}
	if id, _ := join["clientId"].(string); id == "" || id != ws.ClientID() {
		t.Fatalf("join clientId %v, channel %s", join["clientId"], ws.ClientID())
	}

	if err := ws.Send(protocol.PassFrame(board.Black)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frames = fs.waitFrames(t, 2)
	if frames[1]["type"] != "move" || frames[1]["move"] != "pass" || frames[1]["roomCode"] != "ROOM1" {
		t.Fatalf("unexpected frame %v", frames[1])
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`not json`)); err != nil {
		t.Fatalf("server write: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"move","color":"black","coordinate":112}`)); err != nil {
		t.Fatalf("server write: %v", err)
	}
	select {
	case ev := <-events:
		if _, ok := ev.(protocol.Move); !ok {
			t.Fatalf("expected Move, got %T", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no event delivered")
	}
}

func TestWebSocketRejoinsAfterDrop(t *testing.T) {
	fs := newFakeServer(t)
	ws := NewWebSocket(Options{
		URL: fs.url(), SessionKey: "sk", RoomCode: "R",
		MaxReconnectAttempts: 3, ReconnectDelay: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	states := make(chan State, 16)
	ws.OnStateChange(func(s State) { states <- s })

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	first := fs.nextConn(t)
	fs.waitFrames(t, 1)
	firstID := ws.ClientID()

	_ = first.Close(websocket.StatusGoingAway, "restart")
	fs.nextConn(t)
	frames := fs.waitFrames(t, 2)
	if frames[1]["type"] != "join" {
		t.Fatalf("reconnect must start with join, got %v", frames[1])
	}
	if frames[1]["clientId"] == firstID {
		t.Fatalf("each connection needs its own client id")
	}

	seen := map[State]bool{}
	timeout := time.After(3 * time.Second)
	for !(seen[StateDisconnected] && seen[StateReconnecting] && seen[StateConnected]) {
		select {
		case s := <-states:
			seen[s] = true
		case <-timeout:
			t.Fatalf("missing state transitions, saw %v", seen)
		}
	}
}

func TestWebSocketDropRefusesSendsBeforeDraining(t *testing.T) {
	fs := newFakeServer(t)
	var ws *WebSocket
	sendErr := make(chan error, 1)
	core, _ := observer.New(zapcore.DebugLevel)
	logger := zap.New(core, zap.Hooks(func(e zapcore.Entry) error {
		if e.Message != "channel_link_lost" {
			return nil
		}
		err := ws.Send(protocol.PassFrame(board.Black))
		select {
		case sendErr <- err:
		default:
		}
		return nil
	}))
	ws = NewWebSocket(Options{URL: fs.url(), SessionKey: "sk", RoomCode: "R", Logger: logger})
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := fs.nextConn(t)
	fs.waitFrames(t, 1)
	_ = conn.Close(websocket.StatusGoingAway, "restart")

	select {
	case err := <-sendErr:
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("send during teardown must be refused, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("link loss not observed")
	}
	if n := len(ws.sendCh); n != 0 {
		t.Fatalf("%d frames left queued for the next link", n)
	}
}

func TestWebSocketSendRequiresConnection(t *testing.T) {
	ws := NewWebSocket(Options{URL: "ws://127.0.0.1:1/none"})
	if err := ws.Send(protocol.StartRequestFrame()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := ws.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ws.Send(protocol.StartRequestFrame()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if ws.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", ws.State())
	}
	if err := ws.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on connect after close, got %v", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	if got := backoff(100*time.Millisecond, 1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: %v", got)
	}
	if got := backoff(100*time.Millisecond, 3); got != 400*time.Millisecond {
		t.Fatalf("attempt 3: %v", got)
	}
	if got := backoff(10*time.Second, 10); got != 30*time.Second {
		t.Fatalf("cap: %v", got)
	}
}
