package protocol

import (
	"encoding/json"

	"github.com/park285/doljabi-session/internal/board"
)

// Frame is an outbound message. The channel stamps SessionKey and RoomCode
// on every frame it writes.
type Frame struct {
	Type       Kind        `json:"type"`
	SessionKey string      `json:"sessionKey,omitempty"`
	RoomCode   string      `json:"roomCode,omitempty"`
	ClientID   string      `json:"clientId,omitempty"`
	Move       string      `json:"move,omitempty"`
	Color      board.Color `json:"color,omitempty"`
	Coordinate *int        `json:"coordinate,omitempty"`
	BoardSize  int         `json:"boardSize,omitempty"`
	Result     string      `json:"result,omitempty"`
	Accepted   *bool       `json:"accepted,omitempty"`
}

const (
	MovePlace = "place"
	MovePass  = "pass"

	ResultResign = "resign"
)

func JoinFrame(clientID string) Frame {
	return Frame{Type: KindJoin, ClientID: clientID}
}

func PlaceFrame(color board.Color, index, boardSize int) Frame {
	return Frame{Type: KindMove, Move: MovePlace, Color: color, Coordinate: &index, BoardSize: boardSize}
}

func PassFrame(color board.Color) Frame {
	return Frame{Type: KindMove, Move: MovePass, Color: color}
}

func ResignFrame(color board.Color) Frame {
	return Frame{Type: KindEnd, Result: ResultResign, Color: color}
}

func DrawRequestFrame(color board.Color) Frame {
	return Frame{Type: KindDrawRequest, Color: color}
}

func DrawResponseFrame(accepted bool) Frame {
	return Frame{Type: KindDrawResponse, Accepted: &accepted}
}

func StartRequestFrame() Frame { return Frame{Type: KindStartRequest} }

func TimeSyncRequestFrame() Frame { return Frame{Type: KindTimeSyncRequest} }

// Stamped returns a copy carrying the session credential and room.
func (f Frame) Stamped(sessionKey, roomCode string) Frame {
	f.SessionKey = sessionKey
	f.RoomCode = roomCode
	return f
}

func (f Frame) Marshal() ([]byte, error) { return json.Marshal(f) }
