// Package session is the client-side game session state machine. A Session is
// not safe for concurrent use; the room loop owns it and serializes every
// inbound event, tick and intent.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/clock"
	"github.com/park285/doljabi-session/internal/protocol"
)

type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseWaiting    Phase = "waiting"
	PhaseActive     Phase = "active"
	PhaseTerminal   Phase = "terminal"
)

type DrawState string

const (
	DrawNone         DrawState = "none"
	DrawSentByLocal  DrawState = "sent_by_local"
	DrawSentByRemote DrawState = "sent_by_remote"
)

type Game string

const (
	GameOmok  Game = "omok"
	GameBaduk Game = "baduk"
)

// DefaultSize is the board size used when none is configured.
func (g Game) DefaultSize() int {
	if g == GameBaduk {
		return 19
	}
	return 15
}

// ParseGame accepts "omok" and "baduk"; anything else is omok.
func ParseGame(s string) Game {
	if strings.EqualFold(strings.TrimSpace(s), string(GameBaduk)) {
		return GameBaduk
	}
	return GameOmok
}

// Sender delivers outbound frames. Send must not block.
type Sender interface {
	Send(protocol.Frame) error
}

type Config struct {
	RoomCode   string
	LocalColor board.Color
	Nickname   string
	Game       Game
	BoardSize  int
	Clock      clock.Settings
	Logger     *zap.Logger
}

type player struct {
	nickname string
	rating   *int
	joined   bool
}

type Session struct {
	cfg    Config
	out    Sender
	logger *zap.Logger

	board   *board.Board
	clock   *clock.Clock
	players map[board.Color]*player

	phase     Phase
	turn      board.Color
	draw      DrawState
	outcome   *Outcome
	selection *board.Coordinate
	lastMove  *board.Coordinate
	line      []board.Coordinate

	connected     bool
	everConnected bool
	closed        bool
}

var errNoLocalColor = errors.New("session: local color must be black or white")

func New(cfg Config, out Sender) (*Session, error) {
	if out == nil {
		return nil, errors.New("session: sender is nil")
	}
	if !cfg.LocalColor.Valid() {
		return nil, errNoLocalColor
	}
	if cfg.Game == "" {
		cfg.Game = GameOmok
	}
	if cfg.BoardSize == 0 {
		cfg.BoardSize = cfg.Game.DefaultSize()
	}
	b, err := board.New(cfg.BoardSize)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		cfg:    cfg,
		out:    out,
		logger: logger.With(zap.String("room", cfg.RoomCode), zap.String("local", string(cfg.LocalColor))),
		board:  b,
		clock:  clock.New(cfg.Clock),
		players: map[board.Color]*player{
			board.Black: {},
			board.White: {},
		},
		phase: PhaseConnecting,
		draw:  DrawNone,
	}
	s.players[cfg.LocalColor].nickname = cfg.Nickname
	s.players[cfg.LocalColor].joined = true
	return s, nil
}

func (s *Session) Phase() Phase      { return s.phase }
func (s *Session) Turn() board.Color { return s.turn }
func (s *Session) Draw() DrawState   { return s.draw }
func (s *Session) BoardSize() int    { return s.board.Size() }
func (s *Session) Connected() bool   { return s.connected }

func (s *Session) Cell(c board.Coordinate) board.Color { return s.board.At(c) }

// Outcome returns the terminal result, or nil while the game is undecided.
func (s *Session) Outcome() *Outcome {
	if s.outcome == nil {
		return nil
	}
	o := *s.outcome
	return &o
}

// Selection is the local pending move, if any.
func (s *Session) Selection() (board.Coordinate, bool) {
	if s.selection == nil {
		return board.Coordinate{}, false
	}
	return *s.selection, true
}

func (s *Session) Clock(color board.Color) clock.Player { return s.clock.Snapshot(color) }

// SetConnected records a transport state change. The first connection moves
// the session from connecting to waiting. It reports true when the link came
// back after a drop, which is when the caller should ask for a time sync.
// The board is never reset here.
func (s *Session) SetConnected(up bool) (resumed bool) {
	if s.closed || s.connected == up {
		return false
	}
	s.connected = up
	if !up {
		s.logger.Info("session_frozen", zap.String("phase", string(s.phase)))
		return false
	}
	resumed = s.everConnected
	s.everConnected = true
	if s.phase == PhaseConnecting {
		s.phase = PhaseWaiting
	}
	s.logger.Info("session_connected", zap.String("phase", string(s.phase)), zap.Bool("resumed", resumed))
	return resumed
}

// Tick advances the display clock. It is a no-op unless the game is active
// and the link is up.
func (s *Session) Tick(elapsed time.Duration) bool {
	if s.closed || !s.connected || s.phase != PhaseActive {
		return false
	}
	before := s.clock.Snapshot(s.turn)
	s.clock.Tick(elapsed)
	return s.clock.Snapshot(s.turn) != before
}

// Close marks the session closed. Every later intent fails with ErrClosed and
// inbound events are dropped.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.connected = false
	s.clock.Stop()
}

func (s *Session) finish(o Outcome) {
	s.outcome = &o
	s.phase = PhaseTerminal
	s.turn = board.Empty
	s.draw = DrawNone
	s.selection = nil
	s.clock.Stop()
	if o.Reason == ReasonFiveInRow && s.lastMove != nil && s.cfg.Game == GameOmok {
		s.line = s.board.Line(*s.lastMove, 5)
	}
	s.logger.Info("session_terminal",
		zap.String("result", string(o.Result)),
		zap.String("reason", string(o.Reason)),
	)
}
