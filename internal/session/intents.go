package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/protocol"
)

// Intents validate locally and send at most one frame. A rejected intent
// changes nothing and sends nothing.

func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	if !s.connected {
		return ErrDisconnected
	}
	return nil
}

func (s *Session) active() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.phase != PhaseActive {
		return ErrNotActive
	}
	return nil
}

func (s *Session) send(f protocol.Frame) error {
	if err := s.out.Send(f); err != nil {
		s.logger.Warn("session_send_failed", zap.String("type", string(f.Type)), zap.Error(err))
		return fmt.Errorf("send %s: %w", f.Type, err)
	}
	return nil
}

// RequestStart asks the server to start once the opponent is present.
func (s *Session) RequestStart() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.phase != PhaseWaiting {
		return ErrNotWaiting
	}
	if !s.players[s.cfg.LocalColor.Opponent()].joined {
		return ErrNoOpponent
	}
	return s.send(protocol.StartRequestFrame())
}

// Select records c as the pending move without sending anything.
func (s *Session) Select(c board.Coordinate) error {
	if err := s.checkPlace(c); err != nil {
		s.selection = nil
		return err
	}
	s.selection = &c
	return nil
}

// PlaceStone sends a place move for c. The selection stays until the server
// echoes the move back.
func (s *Session) PlaceStone(c board.Coordinate) error {
	if err := s.checkPlace(c); err != nil {
		s.selection = nil
		return err
	}
	idx, err := board.Encode(c.Row, c.Col, s.board.Size())
	if err != nil {
		return err
	}
	if err := s.send(protocol.PlaceFrame(s.cfg.LocalColor, idx, s.board.Size())); err != nil {
		return err
	}
	s.selection = &c
	s.logger.Debug("session_place_sent", zap.String("at", c.Label()), zap.Int("index", idx))
	return nil
}

// PlaceSelection places the pending selection.
func (s *Session) PlaceSelection() error {
	if s.selection == nil {
		if err := s.active(); err != nil {
			return err
		}
		return ErrNoSelection
	}
	return s.PlaceStone(*s.selection)
}

func (s *Session) checkPlace(c board.Coordinate) error {
	if err := s.active(); err != nil {
		return err
	}
	if !c.In(s.board.Size()) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}
	if s.turn != s.cfg.LocalColor {
		return ErrNotYourTurn
	}
	if !s.board.IsEmpty(c) {
		return fmt.Errorf("%w: %s", ErrCellOccupied, c.Label())
	}
	return nil
}

func (s *Session) Pass() error {
	if err := s.active(); err != nil {
		return err
	}
	if s.turn != s.cfg.LocalColor {
		return ErrNotYourTurn
	}
	return s.send(protocol.PassFrame(s.cfg.LocalColor))
}

// Resign is allowed at any point of an active game. The board is not touched
// until the server confirms with end or game_result.
func (s *Session) Resign() error {
	if err := s.active(); err != nil {
		return err
	}
	return s.send(protocol.ResignFrame(s.cfg.LocalColor))
}

func (s *Session) OfferDraw() error {
	if err := s.active(); err != nil {
		return err
	}
	if s.draw != DrawNone {
		return ErrDrawPending
	}
	if s.turn != s.cfg.LocalColor {
		return ErrNotYourTurn
	}
	if err := s.send(protocol.DrawRequestFrame(s.cfg.LocalColor)); err != nil {
		return err
	}
	s.draw = DrawSentByLocal
	return nil
}

// RespondDraw answers the opponent's offer. Accepting ends the game at once.
func (s *Session) RespondDraw(accept bool) error {
	if err := s.active(); err != nil {
		return err
	}
	if s.draw != DrawSentByRemote {
		return ErrNoDrawOffer
	}
	if err := s.send(protocol.DrawResponseFrame(accept)); err != nil {
		return err
	}
	if accept {
		s.finish(Outcome{Result: ResultDraw, Reason: ReasonDrawAgreement})
		return nil
	}
	s.draw = DrawNone
	return nil
}

// RequestTimeSync asks the server to resend both clocks.
func (s *Session) RequestTimeSync() error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.send(protocol.TimeSyncRequestFrame())
}
