package channel

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/doljabi-session/internal/protocol"
)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

type Options struct {
	URL        string
	SessionKey string
	RoomCode   string

	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	PingInterval         time.Duration
	DialTimeout          time.Duration
	WriteTimeout         time.Duration
	QueueSize            int

	Headers HeaderProvider
	Logger  *zap.Logger
}

// link is one dialed connection. Its goroutines stop when done closes.
type link struct {
	conn     *websocket.Conn
	clientID string
	done     chan struct{}
	once     sync.Once
}

// WebSocket is the nhooyr.io/websocket Channel. Every dial, initial or
// reconnect, writes the join frame before anything else.
type WebSocket struct {
	opts   Options
	logger *zap.Logger

	cur   *link
	curM  sync.Mutex
	state State
	stM   sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	sendCh chan protocol.Frame

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

var _ Channel = (*WebSocket)(nil)

func NewWebSocket(opts Options) *WebSocket {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 500 * time.Millisecond
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		opts:       opts,
		logger:     logger.With(zap.String("room", opts.RoomCode)),
		state:      StateDisconnected,
		sendCh:     make(chan protocol.Frame, opts.QueueSize),
		stopCh:     make(chan struct{}),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	if ws.isStopping() {
		return ErrClosed
	}
	switch ws.State() {
	case StateConnected, StateConnecting, StateReconnecting:
		return nil
	}
	ws.setState(StateConnecting)

	if err := ws.dial(ctx); err != nil {
		ws.logger.Warn("channel_connect_failed", zap.String("url", ws.opts.URL), zap.Error(err))
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, ws.opts.DialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, ws.opts.URL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return err
	}

	l := &link{conn: conn, clientID: uuid.NewString(), done: make(chan struct{})}
	join := protocol.JoinFrame(l.clientID).Stamped(ws.opts.SessionKey, ws.opts.RoomCode)
	wctx, wcancel := context.WithTimeout(ctx, ws.opts.WriteTimeout)
	err = wsjson.Write(wctx, conn, join)
	wcancel()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return err
	}

	ws.curM.Lock()
	ws.cur = l
	ws.curM.Unlock()

	ws.logger.Info("channel_joined", zap.String("client_id", l.clientID))
	ws.setState(StateConnected)

	ws.wg.Add(3)
	go ws.listen(l)
	go ws.writer(l)
	go ws.pingLoop(l)
	return nil
}

func (ws *WebSocket) listen(l *link) {
	defer ws.wg.Done()
	for {
		typ, data, err := l.conn.Read(ws.rootCtx)
		if err != nil {
			ws.drop(l, "read", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			ws.logger.Warn("channel_frame_malformed", zap.String("client_id", l.clientID), zap.Error(err))
			continue
		}
		if u, ok := ev.(protocol.Unknown); ok {
			ws.logger.Debug("channel_frame_unknown", zap.String("type", u.Type))
		}

		ws.cbM.RLock()
		callbacks := make([]callbackEntry, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(ev)
			}
		}
	}
}

// writer is the only goroutine writing frames on l after the join.
func (ws *WebSocket) writer(l *link) {
	defer ws.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case f := <-ws.sendCh:
			ctx, cancel := context.WithTimeout(ws.rootCtx, ws.opts.WriteTimeout)
			err := wsjson.Write(ctx, l.conn, f)
			cancel()
			if err != nil {
				ws.logger.Warn("channel_write_failed", zap.String("type", string(f.Type)), zap.Error(err))
				ws.drop(l, "write", err)
				return
			}
		}
	}
}

func (ws *WebSocket) pingLoop(l *link) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := l.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				ws.drop(l, "ping", err)
				return
			}
		}
	}
}

// drop tears l down once and, unless the channel is closing, starts reconnecting.
func (ws *WebSocket) drop(l *link, cause string, err error) {
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.Close(websocket.StatusGoingAway, cause)

		ws.curM.Lock()
		if ws.cur == l {
			ws.cur = nil
		}
		ws.curM.Unlock()

		if ws.isStopping() {
			return
		}
		// refuse new sends before draining so nothing slips onto the next link
		ws.setState(StateDisconnected)
		if n := ws.drain(); n > 0 {
			ws.logger.Warn("channel_frames_dropped", zap.Int("count", n))
		}
		ws.logger.Warn("channel_link_lost", zap.String("client_id", l.clientID), zap.String("cause", cause), zap.Error(err))
		ws.scheduleReconnect()
	})
}

// drain discards frames queued for a lost link; they were validated against
// state the server may no longer share.
func (ws *WebSocket) drain() int {
	n := 0
	for {
		select {
		case <-ws.sendCh:
			n++
		default:
			return n
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.opts.MaxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		for attempt := 1; attempt <= ws.opts.MaxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoff(ws.opts.ReconnectDelay, attempt)):
			}
			if err := ws.dial(ws.rootCtx); err != nil {
				ws.logger.Debug("channel_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.logger.Info("channel_reconnected", zap.Int("attempt", attempt))
			return
		}
		ws.setState(StateFailed)
	}()
}

// backoff doubles base per attempt, capped at 30s.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 7 {
		attempt = 7
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Send queues f for the writer. It never blocks.
func (ws *WebSocket) Send(f protocol.Frame) error {
	if ws.isStopping() {
		return ErrClosed
	}
	if ws.State() != StateConnected {
		return ErrNotConnected
	}
	select {
	case ws.sendCh <- f.Stamped(ws.opts.SessionKey, ws.opts.RoomCode):
		return nil
	default:
		return ErrQueueFull
	}
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) State() State {
	ws.stM.RLock()
	defer ws.stM.RUnlock()
	return ws.state
}

// ClientID is the id sent in the join frame of the current connection.
func (ws *WebSocket) ClientID() string {
	ws.curM.Lock()
	defer ws.curM.Unlock()
	if ws.cur == nil {
		return ""
	}
	return ws.cur.clientID
}

func (ws *WebSocket) setState(state State) {
	ws.stM.Lock()
	if ws.state == StateClosed {
		ws.stM.Unlock()
		return
	}
	ws.state = state
	ws.stM.Unlock()
	ws.logger.Debug("channel_state", zap.String("state", string(state)))

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close stops reconnecting, closes the current connection and waits for all
// goroutines or ctx, whichever comes first.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.curM.Lock()
	l := ws.cur
	ws.curM.Unlock()
	if l != nil {
		l.once.Do(func() {
			close(l.done)
			_ = l.conn.Close(websocket.StatusNormalClosure, "close")
		})
	}
	ws.setState(StateClosed)
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.opts.Headers == nil {
		return hdr
	}
	for k, v := range ws.opts.Headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
