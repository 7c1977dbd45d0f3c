package session

import (
	"strings"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/protocol"
)

type Result string

const (
	ResultBlackWins Result = "black_wins"
	ResultWhiteWins Result = "white_wins"
	ResultDraw      Result = "draw"
)

type Reason string

const (
	ReasonFiveInRow     Reason = "five_in_row"
	ReasonResign        Reason = "resign"
	ReasonDrawAgreement Reason = "draw_agreement"
	ReasonTimeout       Reason = "timeout"
	ReasonDisconnect    Reason = "disconnect"
	// ReasonUnspecified is kept when the server sends a reason this client
	// does not know.
	ReasonUnspecified Reason = "unspecified"
)

type Outcome struct {
	Result Result
	Reason Reason
}

// Winner is the winning color, or Empty for a draw.
func (o Outcome) Winner() board.Color {
	switch o.Result {
	case ResultBlackWins:
		return board.Black
	case ResultWhiteWins:
		return board.White
	default:
		return board.Empty
	}
}

func winOf(c board.Color) Result {
	if c == board.White {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

// outcomeFrom converts a server result. ok is false when the winner is not
// black, white or draw.
func outcomeFrom(r protocol.Result) (Outcome, bool) {
	var o Outcome
	switch strings.ToLower(strings.TrimSpace(r.Winner)) {
	case "black", "b":
		o.Result = ResultBlackWins
	case "white", "w":
		o.Result = ResultWhiteWins
	case "draw":
		o.Result = ResultDraw
	default:
		return Outcome{}, false
	}
	o.Reason = parseReason(r.Reason)
	if o.Reason == ReasonUnspecified && o.Result == ResultDraw {
		o.Reason = ReasonDrawAgreement
	}
	return o, true
}

func parseReason(s string) Reason {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "win", "five_in_row", "fiveinrow", "omok":
		return ReasonFiveInRow
	case "resign":
		return ReasonResign
	case "draw", "draw_agreement", "agreement":
		return ReasonDrawAgreement
	case "timeout", "time":
		return ReasonTimeout
	case "disconnect", "disconnected", "abandon":
		return ReasonDisconnect
	default:
		return ReasonUnspecified
	}
}
