package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/protocol"
)

// Notice keys announce state changes the player should be told about.
const (
	NoticeOpponentJoined = "notice.opponent_joined"
	NoticeStarted        = "notice.started"
	NoticePass           = "notice.pass"
	NoticeDrawOffered    = "notice.draw_offered"
	NoticeDrawDeclined   = "notice.draw_declined"
	NoticeGameOver       = "notice.game_over"
	NoticeReset          = "notice.reset"
)

// Effect describes what an inbound event did.
type Effect struct {
	Changed bool
	Notice  string
}

var errPrecondition = errors.New("precondition failed")

// Apply consumes one authoritative server event. Events whose precondition
// does not hold are logged and dropped without any state change.
func (s *Session) Apply(ev protocol.Event) Effect {
	if s.closed || ev == nil {
		return Effect{}
	}
	var (
		eff Effect
		err error
	)
	switch e := ev.(type) {
	case protocol.OpponentJoined:
		eff, err = s.onOpponentJoined(e)
	case protocol.Start:
		eff, err = s.onStart()
	case protocol.Move:
		eff, err = s.onMove(e)
	case protocol.Pass:
		eff, err = s.onPass(e)
	case protocol.End:
		eff, err = s.onEnd(e)
	case protocol.DrawRequest:
		eff, err = s.onDrawRequest()
	case protocol.DrawResponse:
		eff, err = s.onDrawResponse(e)
	case protocol.TimerUpdate:
		eff, err = s.onTimerUpdate(e)
	case protocol.GameResult:
		eff, err = s.onGameResult(e)
	case protocol.Reset:
		eff = s.onReset()
	default:
		s.logger.Warn("session_event_unknown", zap.String("kind", string(ev.Kind())))
		return Effect{}
	}
	if err != nil {
		s.logger.Debug("session_event_ignored",
			zap.String("kind", string(ev.Kind())),
			zap.String("phase", string(s.phase)),
			zap.Error(err),
		)
		return Effect{}
	}
	return eff
}

func (s *Session) onOpponentJoined(e protocol.OpponentJoined) (Effect, error) {
	if s.phase != PhaseWaiting {
		return Effect{}, errPrecondition
	}
	color := e.Color
	if !color.Valid() {
		color = s.cfg.LocalColor.Opponent()
	}
	p := s.players[color]
	p.nickname = e.Nickname
	p.rating = e.Rating
	p.joined = true
	s.logger.Info("session_opponent_joined", zap.String("color", string(color)), zap.String("nickname", e.Nickname))
	return Effect{Changed: true, Notice: NoticeOpponentJoined}, nil
}

func (s *Session) onStart() (Effect, error) {
	if s.phase != PhaseWaiting {
		return Effect{}, errPrecondition
	}
	s.phase = PhaseActive
	s.turn = board.Black
	s.outcome = nil
	s.draw = DrawNone
	s.selection = nil
	s.clock.Start(board.Black)
	s.logger.Info("session_started")
	return Effect{Changed: true, Notice: NoticeStarted}, nil
}

func (s *Session) onMove(e protocol.Move) (Effect, error) {
	if s.phase != PhaseActive {
		return Effect{}, errPrecondition
	}
	if !e.Color.Valid() || e.Color != s.turn {
		return Effect{}, ErrNotYourTurn
	}
	at, err := e.Coordinate(s.board.Size())
	if err != nil {
		return Effect{}, err
	}
	if err := s.board.Place(at, e.Color); err != nil {
		return Effect{}, err
	}
	s.lastMove = &at
	s.selection = nil
	s.logger.Debug("session_move_applied", zap.String("color", string(e.Color)), zap.String("at", at.Label()))

	if e.Result != nil {
		if o, ok := outcomeFrom(*e.Result); ok {
			s.finish(o)
			return Effect{Changed: true, Notice: NoticeGameOver}, nil
		}
		s.logger.Warn("session_result_malformed", zap.String("winner", e.Result.Winner))
	}
	s.flip()
	return Effect{Changed: true}, nil
}

func (s *Session) onPass(e protocol.Pass) (Effect, error) {
	if s.phase != PhaseActive {
		return Effect{}, errPrecondition
	}
	color := e.Color
	if color == board.Empty {
		color = s.turn
	}
	if color != s.turn {
		return Effect{}, ErrNotYourTurn
	}
	s.selection = nil
	s.flip()
	return Effect{Changed: true, Notice: NoticePass}, nil
}

func (s *Session) onEnd(e protocol.End) (Effect, error) {
	if s.phase != PhaseActive || e.Result != protocol.ResultResign {
		return Effect{}, errPrecondition
	}
	winner := e.Winner
	if !winner.Valid() {
		winner = e.Color.Opponent()
	}
	if !winner.Valid() {
		return Effect{}, errPrecondition
	}
	s.finish(Outcome{Result: winOf(winner), Reason: ReasonResign})
	return Effect{Changed: true, Notice: NoticeGameOver}, nil
}

func (s *Session) onDrawRequest() (Effect, error) {
	if s.phase != PhaseActive || s.draw != DrawNone {
		return Effect{}, errPrecondition
	}
	s.draw = DrawSentByRemote
	return Effect{Changed: true, Notice: NoticeDrawOffered}, nil
}

func (s *Session) onDrawResponse(e protocol.DrawResponse) (Effect, error) {
	if s.phase != PhaseActive || s.draw != DrawSentByLocal {
		return Effect{}, errPrecondition
	}
	if e.Accepted {
		s.finish(Outcome{Result: ResultDraw, Reason: ReasonDrawAgreement})
		return Effect{Changed: true, Notice: NoticeGameOver}, nil
	}
	s.draw = DrawNone
	return Effect{Changed: true, Notice: NoticeDrawDeclined}, nil
}

func (s *Session) onTimerUpdate(e protocol.TimerUpdate) (Effect, error) {
	if s.phase == PhaseTerminal || !e.Color.Valid() {
		return Effect{}, errPrecondition
	}
	return Effect{Changed: s.clock.Apply(e.Color, e.Reading)}, nil
}

// onGameResult applies in any phase; a later result replaces an earlier one.
func (s *Session) onGameResult(e protocol.GameResult) (Effect, error) {
	o, ok := outcomeFrom(e.Result)
	if !ok {
		return Effect{}, errPrecondition
	}
	s.finish(o)
	return Effect{Changed: true, Notice: NoticeGameOver}, nil
}

// onReset is the only path that clears the board.
func (s *Session) onReset() Effect {
	s.board.Clear()
	s.clock.Reset()
	if s.phase != PhaseConnecting {
		s.phase = PhaseWaiting
	}
	s.turn = board.Empty
	s.draw = DrawNone
	s.outcome = nil
	s.selection = nil
	s.lastMove = nil
	s.line = nil
	s.logger.Info("session_reset")
	return Effect{Changed: true, Notice: NoticeReset}
}

func (s *Session) flip() {
	s.turn = s.turn.Opponent()
	s.clock.Switch(s.turn)
}
