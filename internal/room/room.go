// Package room runs one game session: a single goroutine owns the Session and
// consumes inbound frames, channel state changes, display ticks and local
// intents from one inbox, so the session never needs a lock.
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/channel"
	"github.com/park285/doljabi-session/internal/protocol"
	"github.com/park285/doljabi-session/internal/session"
	"github.com/park285/doljabi-session/internal/voice"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

type msg interface{ isRoomMsg() }

type inbound struct{ ev protocol.Event }

func (inbound) isRoomMsg() {}

type stateChange struct{ state channel.State }

func (stateChange) isRoomMsg() {}

type intent struct {
	name  string
	fn    func(*session.Session) error
	reply chan error
}

func (intent) isRoomMsg() {}

type getView struct{ reply chan sessiondto.View }

func (getView) isRoomMsg() {}

// Update is pushed after every change the presentation should render.
type Update struct {
	View   sessiondto.View
	Notice string
	// Status is set when the channel state changed.
	Status channel.State
}

type Options struct {
	Session  session.Config
	Tick     time.Duration
	Resolver *voice.Resolver
	Logger   *zap.Logger
	// UpdateBuffer bounds Updates; updates beyond it are dropped.
	UpdateBuffer int
}

type Room struct {
	ch       channel.Channel
	sess     *session.Session
	resolver *voice.Resolver
	logger   *zap.Logger
	tick     time.Duration

	inbox   chan msg
	updates chan Update

	msgCbID   int
	stateCbID int

	closing   atomic.Bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

var ErrNoResolver = errors.New("room: voice input not configured")

// Open creates the session, starts the loop and connects ch. The room owns ch
// from here on and releases it in Close, including when Open fails.
func Open(ctx context.Context, ch channel.Channel, opts Options) (*Room, error) {
	if ch == nil {
		return nil, errors.New("room: channel is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Session.Logger = logger
	sess, err := session.New(opts.Session, ch)
	if err != nil {
		_ = ch.Close(ctx)
		return nil, err
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = 64
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r := &Room{
		ch:       ch,
		sess:     sess,
		resolver: opts.Resolver,
		logger:   logger,
		tick:     opts.Tick,
		inbox:    make(chan msg, 64),
		updates:  make(chan Update, opts.UpdateBuffer),
		ctx:      loopCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	r.msgCbID = ch.OnMessage(func(ev protocol.Event) { r.post(inbound{ev: ev}) })
	r.stateCbID = ch.OnStateChange(func(s channel.State) { r.post(stateChange{state: s}) })
	go r.loop()

	if err := ch.Connect(ctx); err != nil {
		if ch.State() == channel.StateFailed {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("room: connect: %w", err)
		}
		logger.Warn("room_connect_retrying", zap.Error(err))
	}
	return r, nil
}

// Updates is closed when the room stops.
func (r *Room) Updates() <-chan Update { return r.updates }

// Done is closed when the loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) post(m msg) {
	select {
	case r.inbox <- m:
	case <-r.done:
	}
}

func (r *Room) loop() {
	defer close(r.done)
	defer close(r.updates)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-r.ctx.Done():
			r.sess.Close()
			r.drainIntents()
			return

		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if r.sess.Tick(elapsed) {
				r.publish(Update{})
			}

		case m := <-r.inbox:
			switch m := m.(type) {
			case inbound:
				eff := r.sess.Apply(m.ev)
				if eff.Changed {
					r.publish(Update{Notice: eff.Notice})
				}

			case stateChange:
				r.onState(m.state)

			case intent:
				err := m.fn(r.sess)
				if err != nil {
					r.logger.Debug("room_intent_rejected", zap.String("intent", m.name), zap.Error(err))
				} else {
					r.publish(Update{})
				}
				m.reply <- err

			case getView:
				m.reply <- r.sess.View()
			}
		}
	}
}

func (r *Room) onState(s channel.State) {
	if s == channel.StateConnected {
		if r.sess.SetConnected(true) {
			if err := r.sess.RequestTimeSync(); err != nil {
				r.logger.Warn("room_time_sync_failed", zap.Error(err))
			}
		}
	} else {
		r.sess.SetConnected(false)
	}
	r.publish(Update{Status: s})
}

// drainIntents answers intents still queued at shutdown.
func (r *Room) drainIntents() {
	for {
		select {
		case m := <-r.inbox:
			switch m := m.(type) {
			case intent:
				m.reply <- session.ErrClosed
			case getView:
				m.reply <- r.sess.View()
			}
		default:
			return
		}
	}
}

func (r *Room) publish(u Update) {
	u.View = r.sess.View()
	select {
	case r.updates <- u:
	default:
		r.logger.Debug("room_update_dropped", zap.String("notice", u.Notice))
	}
}

func (r *Room) do(name string, fn func(*session.Session) error) error {
	if r.closing.Load() {
		return session.ErrClosed
	}
	reply := make(chan error, 1)
	select {
	case r.inbox <- intent{name: name, fn: fn, reply: reply}:
	case <-r.done:
		return session.ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return session.ErrClosed
		}
	}
}

// View returns the current session snapshot.
func (r *Room) View() sessiondto.View {
	reply := make(chan sessiondto.View, 1)
	select {
	case r.inbox <- getView{reply: reply}:
	case <-r.done:
		return sessiondto.View{Closed: true}
	}
	select {
	case v := <-reply:
		return v
	case <-r.done:
		select {
		case v := <-reply:
			return v
		default:
			return sessiondto.View{Closed: true}
		}
	}
}

func (r *Room) RequestStart() error {
	return r.do("request_start", (*session.Session).RequestStart)
}

func (r *Room) Select(c board.Coordinate) error {
	return r.do("select", func(s *session.Session) error { return s.Select(c) })
}

func (r *Room) PlaceStone(c board.Coordinate) error {
	return r.do("place_stone", func(s *session.Session) error { return s.PlaceStone(c) })
}

func (r *Room) PlaceSelection() error {
	return r.do("place_selection", (*session.Session).PlaceSelection)
}

func (r *Room) Pass() error { return r.do("pass", (*session.Session).Pass) }

func (r *Room) Resign() error { return r.do("resign", (*session.Session).Resign) }

func (r *Room) OfferDraw() error { return r.do("offer_draw", (*session.Session).OfferDraw) }

func (r *Room) RespondDraw(accept bool) error {
	return r.do("respond_draw", func(s *session.Session) error { return s.RespondDraw(accept) })
}

func (r *Room) RequestTimeSync() error {
	return r.do("time_sync", (*session.Session).RequestTimeSync)
}

// Say resolves a spoken or typed coordinate and places a stone there.
func (r *Room) Say(text string) (board.Coordinate, error) {
	if r.resolver == nil {
		return board.Coordinate{}, ErrNoResolver
	}
	var at board.Coordinate
	err := r.do("say", func(s *session.Session) error {
		c, err := r.resolver.ResolveUtterance(text, s.BoardSize())
		if err != nil {
			return err
		}
		at = c
		return s.PlaceStone(c)
	})
	if err != nil {
		r.logger.Info("room_voice_rejected", zap.String("text", text), zap.Error(err))
	}
	return at, err
}

// SelectUtterance resolves text like Say but only marks the selection.
func (r *Room) SelectUtterance(text string) error {
	if r.resolver == nil {
		return ErrNoResolver
	}
	return r.do("select", func(s *session.Session) error {
		c, err := r.resolver.ResolveUtterance(text, s.BoardSize())
		if err != nil {
			return err
		}
		return s.Select(c)
	})
}

// Close marks the session closed, stops the loop and the ticker, and releases
// the channel. It is safe to call more than once.
func (r *Room) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.closing.Store(true)
		r.cancel()
		select {
		case <-r.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		r.ch.RemoveMessageCallback(r.msgCbID)
		r.ch.RemoveStateCallback(r.stateCbID)
		if cerr := r.ch.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		r.logger.Info("room_closed")
	})
	return err
}
