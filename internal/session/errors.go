package session

import (
	"errors"
	"fmt"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

// Local validation errors. None of them is ever sent to the server.
var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrDrawPending  = fmt.Errorf("draw offer pending: %w", ErrNotYourTurn)
	ErrNoDrawOffer  = errors.New("no draw offer to respond to")
	ErrNotActive    = errors.New("game is not in progress")
	ErrNotWaiting   = errors.New("game already started")
	ErrNoOpponent   = errors.New("opponent has not joined")
	ErrDisconnected = errors.New("disconnected from server")
	ErrClosed       = errors.New("session closed")
	ErrNoSelection  = errors.New("no stone selected")

	ErrCellOccupied = board.ErrCellOccupied
	ErrOutOfRange   = board.ErrOutOfRange
)

// DomainError maps an intent rejection to a catalog key for presentation.
// Unknown errors map to error.internal and are retryable.
func DomainError(err error) sessiondto.DomainError {
	code, retry := "error.internal", true
	switch {
	case errors.Is(err, ErrDrawPending):
		code, retry = "error.draw_pending", false
	case errors.Is(err, ErrNotYourTurn):
		code, retry = "error.not_your_turn", false
	case errors.Is(err, ErrCellOccupied):
		code, retry = "error.cell_occupied", false
	case errors.Is(err, ErrOutOfRange):
		code, retry = "error.out_of_range", false
	case errors.Is(err, ErrNoDrawOffer):
		code, retry = "error.no_draw_offer", false
	case errors.Is(err, ErrNotActive):
		code, retry = "error.not_active", false
	case errors.Is(err, ErrNotWaiting):
		code, retry = "error.not_waiting", false
	case errors.Is(err, ErrNoOpponent):
		code, retry = "error.no_opponent", true
	case errors.Is(err, ErrDisconnected):
		code, retry = "error.disconnected", true
	case errors.Is(err, ErrNoSelection):
		code, retry = "error.no_selection", false
	case errors.Is(err, ErrClosed):
		code, retry = "error.closed", false
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return sessiondto.DomainError{Code: code, Message: msg, Retryable: retry, Err: err}
}
