package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/channel"
	"github.com/park285/doljabi-session/internal/clock"
	"github.com/park285/doljabi-session/internal/protocol"
	"github.com/park285/doljabi-session/internal/session"
	"github.com/park285/doljabi-session/internal/voice"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

type fakeChannel struct {
	mu       sync.Mutex
	frames   []protocol.Frame
	state    channel.State
	onMsg    map[int]channel.MessageCallback
	onState  map[int]channel.StateCallback
	nextID   int
	closed   bool
	failDial bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		state:   channel.StateDisconnected,
		onMsg:   map[int]channel.MessageCallback{},
		onState: map[int]channel.StateCallback{},
	}
}

func (f *fakeChannel) Connect(ctx context.Context) error {
	if f.failDial {
		f.setState(channel.StateFailed)
		return errors.New("dial refused")
	}
	f.setState(channel.StateConnected)
	return nil
}

func (f *fakeChannel) Send(fr protocol.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != channel.StateConnected {
		return channel.ErrNotConnected
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeChannel) OnMessage(cb channel.MessageCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.onMsg[f.nextID] = cb
	return f.nextID
}

func (f *fakeChannel) RemoveMessageCallback(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.onMsg, id)
}

func (f *fakeChannel) OnStateChange(cb channel.StateCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.onState[f.nextID] = cb
	return f.nextID
}

func (f *fakeChannel) RemoveStateCallback(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.onState, id)
}

func (f *fakeChannel) State() channel.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.setState(channel.StateClosed)
	return nil
}

func (f *fakeChannel) setState(s channel.State) {
	f.mu.Lock()
	f.state = s
	cbs := make([]channel.StateCallback, 0, len(f.onState))
	for _, cb := range f.onState {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (f *fakeChannel) emit(ev protocol.Event) {
	f.mu.Lock()
	cbs := make([]channel.MessageCallback, 0, len(f.onMsg))
	for _, cb := range f.onMsg {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

func (f *fakeChannel) sent() []protocol.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Frame(nil), f.frames...)
}

func openRoom(t *testing.T, ch *fakeChannel, tick time.Duration) *Room {
	t.Helper()
	v, err := voice.LoadVocabulary("ko", "")
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	res, err := voice.NewResolver(v, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	r, err := Open(context.Background(), ch, Options{
		Session: session.Config{
			RoomCode:   "ROOM1",
			LocalColor: board.Black,
			BoardSize:  15,
			Clock:      clock.Settings{MainTime: 2 * time.Second, ByoyomiPeriod: time.Second, ByoyomiCount: 1},
		},
		Tick:     tick,
		Resolver: res,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func waitFor(t *testing.T, r *Room, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; view %+v", what, r.View())
}

func startGame(t *testing.T, r *Room, ch *fakeChannel) {
	t.Helper()
	waitFor(t, r, "waiting", func() bool { return r.View().Phase == string(session.PhaseWaiting) })
	ch.emit(protocol.OpponentJoined{Color: board.White, Nickname: "상대"})
	ch.emit(protocol.Start{})
	waitFor(t, r, "active", func() bool { return r.View().Phase == string(session.PhaseActive) })
}

func TestRoomPlaceAndEcho(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, time.Hour)
	startGame(t, r, ch)

	if err := r.PlaceStone(board.Coordinate{Row: 7, Col: 7}); err != nil {
		t.Fatalf("PlaceStone: %v", err)
	}
	frames := ch.sent()
	if len(frames) != 1 || frames[0].Coordinate == nil || *frames[0].Coordinate != 112 {
		t.Fatalf("unexpected frames %+v", frames)
	}
	ch.emit(protocol.Move{Color: board.Black, Index: frames[0].Coordinate})
	waitFor(t, r, "echo", func() bool {
		v := r.View()
		return v.Board[7][7] == "black" && v.Turn == "white"
	})
	if err := r.Pass(); !errors.Is(err, session.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestRoomSayUsesCanonicalEncoding(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, time.Hour)
	startGame(t, r, ch)

	at, err := r.Say("에이4")
	if err != nil {
		t.Fatalf("Say: %v", err)
	}
	if at != (board.Coordinate{Row: 3, Col: 0}) {
		t.Fatalf("expected (3,0), got %v", at)
	}
	frames := ch.sent()
	if len(frames) != 1 || *frames[0].Coordinate != 45 {
		t.Fatalf("expected index 45, got %+v", frames)
	}
	if _, err := r.Say("ㅁㅁㅁ"); !errors.Is(err, voice.ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
	if len(ch.sent()) != 1 {
		t.Fatalf("failed utterance must not send")
	}
}

func TestRoomReconnectRequestsTimeSync(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, time.Hour)
	startGame(t, r, ch)
	ch.emit(protocol.Move{Color: board.Black, Index: intp(0)})

	ch.setState(channel.StateReconnecting)
	waitFor(t, r, "disconnect", func() bool { return !r.View().Connected })
	if err := r.Resign(); !errors.Is(err, session.ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}

	ch.setState(channel.StateConnected)
	waitFor(t, r, "time sync", func() bool {
		for _, f := range ch.sent() {
			if f.Type == protocol.KindTimeSyncRequest {
				return true
			}
		}
		return false
	})
	v := r.View()
	if v.Board[0][0] != "black" || v.Phase != string(session.PhaseActive) {
		t.Fatalf("reconnect must not reset the board: %+v", v)
	}
}

func TestRoomTickCountsDown(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, 20*time.Millisecond)
	startGame(t, r, ch)
	waitFor(t, r, "tick", func() bool { return r.View().Black.Main < 2*time.Second })
	if r.View().White.Main != 2*time.Second {
		t.Fatalf("white clock must not run")
	}
}

func TestRoomCloseReleasesChannel(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, 10*time.Millisecond)
	startGame(t, r, ch)

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Resign(); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	ch.mu.Lock()
	closed := ch.closed
	ch.mu.Unlock()
	if !closed {
		t.Fatalf("channel must be released")
	}
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop")
	}
	for range r.Updates() {
	}
	ch.emit(protocol.Start{})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRoomOpenFailsWhenChannelFails(t *testing.T) {
	ch := newFakeChannel()
	ch.failDial = true
	_, err := Open(context.Background(), ch, Options{Session: session.Config{LocalColor: board.White}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ch.closed {
		t.Fatalf("channel must be released on failed open")
	}
}

func intp(v int) *int { return &v }

func TestRoomSelectUtteranceThenConfirm(t *testing.T) {
	ch := newFakeChannel()
	r := openRoom(t, ch, time.Hour)
	startGame(t, r, ch)

	if err := r.SelectUtterance("3행5열"); err != nil {
		t.Fatalf("SelectUtterance: %v", err)
	}
	if sel := r.View().Selection; sel == nil || *sel != (sessiondto.Point{Row: 2, Col: 4}) {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if len(ch.sent()) != 0 {
		t.Fatalf("select must not send")
	}
	if err := r.PlaceSelection(); err != nil {
		t.Fatalf("PlaceSelection: %v", err)
	}
	frames := ch.sent()
	if len(frames) != 1 || *frames[0].Coordinate != 2*15+4 {
		t.Fatalf("unexpected frames %+v", frames)
	}
}
