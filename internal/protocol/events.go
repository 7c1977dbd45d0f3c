// Package protocol defines the JSON text frames exchanged with the session
// coordinator. Inbound frames are decoded once, at the channel boundary, into
// one of the Event variants below.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/clock"
)

type Kind string

const (
	KindJoin            Kind = "join"
	KindOpponentJoined  Kind = "opponent_joined"
	KindStart           Kind = "start"
	KindStartRequest    Kind = "start_request"
	KindMove            Kind = "move"
	KindPass            Kind = "pass"
	KindEnd             Kind = "end"
	KindDrawRequest     Kind = "draw_request"
	KindDrawResponse    Kind = "draw_response"
	KindTimerUpdate     Kind = "timer_update"
	KindTimeSyncRequest Kind = "time_sync_request"
	KindGameResult      Kind = "game_result"
	KindReset           Kind = "reset"
)

var ErrMalformed = errors.New("malformed frame")

// Event is an inbound frame.
type Event interface {
	Kind() Kind
}

type OpponentJoined struct {
	Color    board.Color
	Nickname string
	Rating   *int
}

type Start struct{}

// Move carries either a linear index or explicit row/col. Result is set when
// the server declares the game over with this move.
type Move struct {
	Color  board.Color
	Index  *int
	Row    *int
	Col    *int
	Result *Result
}

// Pass without a color applies to whoever has the turn.
type Pass struct {
	Color board.Color
}

type End struct {
	Result string
	Color  board.Color
	Winner board.Color
}

type DrawRequest struct{}

type DrawResponse struct {
	Accepted bool
}

type TimerUpdate struct {
	Color   board.Color
	Reading clock.Reading
}

type GameResult struct {
	Result Result
}

type Reset struct{}

// Unknown is any frame whose type this client does not handle.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (OpponentJoined) Kind() Kind { return KindOpponentJoined }
func (Start) Kind() Kind          { return KindStart }
func (Move) Kind() Kind           { return KindMove }
func (Pass) Kind() Kind           { return KindPass }
func (End) Kind() Kind            { return KindEnd }
func (DrawRequest) Kind() Kind    { return KindDrawRequest }
func (DrawResponse) Kind() Kind   { return KindDrawResponse }
func (TimerUpdate) Kind() Kind    { return KindTimerUpdate }
func (GameResult) Kind() Kind     { return KindGameResult }
func (Reset) Kind() Kind          { return KindReset }
func (u Unknown) Kind() Kind      { return Kind(u.Type) }

// Result is a server-declared outcome. Winner is "black", "white" or "draw".
type Result struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// Coordinate resolves the move position on a size×size board, preferring
// explicit row/col over the linear index.
func (m Move) Coordinate(size int) (board.Coordinate, error) {
	if m.Row != nil && m.Col != nil {
		c := board.Coordinate{Row: *m.Row, Col: *m.Col}
		if !c.In(size) {
			return board.Coordinate{}, fmt.Errorf("%w: %s on %dx%d", board.ErrOutOfRange, c, size, size)
		}
		return c, nil
	}
	if m.Index != nil {
		return board.Decode(*m.Index, size)
	}
	return board.Coordinate{}, fmt.Errorf("%w: move without coordinate", ErrMalformed)
}

type fields map[string]json.RawMessage

// Decode parses one inbound text frame. Unknown fields are ignored and unknown
// types decode to Unknown. Only frames that are not a JSON object with a
// string "type" fail.
func Decode(data []byte) (Event, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	typ, ok := f.str("type")
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch Kind(typ) {
	case KindOpponentJoined:
		name, _ := f.str("nickname")
		ev := OpponentJoined{Color: f.color("color"), Nickname: name}
		if r, ok := f.num("rating"); ok {
			v := int(math.Round(r))
			ev.Rating = &v
		}
		return ev, nil
	case KindStart:
		return Start{}, nil
	case KindMove:
		ev := Move{
			Color: f.color("color"),
			Index: f.intPtr("coordinate"),
			Row:   f.intPtr("row"),
			Col:   f.intPtr("col"),
		}
		ev.Result = f.result("gameResult")
		return ev, nil
	case KindPass:
		return Pass{Color: f.color("color")}, nil
	case KindEnd:
		res, _ := f.str("result")
		return End{Result: res, Color: f.color("color"), Winner: f.color("winner")}, nil
	case KindDrawRequest:
		return DrawRequest{}, nil
	case KindDrawResponse:
		var accepted bool
		if raw, ok := f.value("accepted"); ok {
			_ = json.Unmarshal(raw, &accepted)
		}
		return DrawResponse{Accepted: accepted}, nil
	case KindTimerUpdate:
		ev := TimerUpdate{Color: f.color("color")}
		if v, ok := f.num("mainTime"); ok {
			ev.Reading.Main = &v
		}
		if v, ok := f.num("byoyomiTime"); ok {
			ev.Reading.Byoyomi = &v
		}
		ev.Reading.Count = f.intPtr("byoyomiCount")
		return ev, nil
	case KindGameResult:
		if r := f.result("gameResult"); r != nil {
			return GameResult{Result: *r}, nil
		}
		winner, _ := f.str("winner")
		reason, _ := f.str("reason")
		return GameResult{Result: Result{Winner: strings.ToLower(winner), Reason: reason}}, nil
	case KindReset:
		return Reset{}, nil
	default:
		return Unknown{Type: typ, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}

// value returns the raw field, treating an explicit null as absent.
func (f fields) value(key string) (json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (f fields) str(key string) (string, bool) {
	raw, ok := f.value(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func (f fields) num(key string) (float64, bool) {
	raw, ok := f.value(key)
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func (f fields) intPtr(key string) *int {
	v, ok := f.num(key)
	if !ok || v != math.Trunc(v) {
		return nil
	}
	n := int(v)
	return &n
}

func (f fields) color(key string) board.Color {
	s, ok := f.str(key)
	if !ok {
		return board.Empty
	}
	c, _ := board.ParseColor(s)
	return c
}

func (f fields) result(key string) *Result {
	raw, ok := f.value(key)
	if !ok {
		return nil
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil || r.Winner == "" {
		return nil
	}
	r.Winner = strings.ToLower(strings.TrimSpace(r.Winner))
	return &r
}
