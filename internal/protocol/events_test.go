package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/park285/doljabi-session/internal/board"
)

func TestDecodeMoveWithIndexAndResult(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"move","color":"white","coordinate":112,"gameResult":{"winner":"White","reason":"win"},"extra":1}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mv, ok := ev.(Move)
	if !ok {
		t.Fatalf("expected Move, got %T", ev)
	}
	if mv.Color != board.White {
		t.Fatalf("color: %q", mv.Color)
	}
	c, err := mv.Coordinate(15)
	if err != nil || c != (board.Coordinate{Row: 7, Col: 7}) {
		t.Fatalf("coordinate: %v %v", c, err)
	}
	if mv.Result == nil || mv.Result.Winner != "white" || mv.Result.Reason != "win" {
		t.Fatalf("result: %+v", mv.Result)
	}
}

func TestDecodeMoveRowColPreferred(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"move","color":"black","row":2,"col":3,"coordinate":0,"gameResult":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mv := ev.(Move)
	c, err := mv.Coordinate(15)
	if err != nil || c != (board.Coordinate{Row: 2, Col: 3}) {
		t.Fatalf("coordinate: %v %v", c, err)
	}
	if mv.Result != nil {
		t.Fatalf("null gameResult must decode to nil")
	}
	if _, err := (Move{}).Coordinate(15); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeMoveNullRowColFallsBackToIndex(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"move","color":"black","coordinate":112,"row":null,"col":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mv := ev.(Move)
	if mv.Row != nil || mv.Col != nil {
		t.Fatalf("null row/col must be absent: %v %v", mv.Row, mv.Col)
	}
	c, err := mv.Coordinate(15)
	if err != nil || c != (board.Coordinate{Row: 7, Col: 7}) {
		t.Fatalf("coordinate: %v %v", c, err)
	}
}

func TestDecodeTimerUpdateNullFieldsAbsent(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"timer_update","color":null,"mainTime":null,"byoyomiTime":null,"byoyomiCount":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tu := ev.(TimerUpdate)
	if tu.Color != board.Empty || tu.Reading.Main != nil || tu.Reading.Byoyomi != nil || tu.Reading.Count != nil {
		t.Fatalf("null fields must be absent: %+v", tu)
	}
}

func TestDecodeTimerUpdateKeepsValidFields(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"timer_update","color":"black","mainTime":"oops","byoyomiTime":30,"byoyomiCount":3}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tu := ev.(TimerUpdate)
	if tu.Reading.Main != nil {
		t.Fatalf("malformed mainTime must be absent")
	}
	if tu.Reading.Byoyomi == nil || *tu.Reading.Byoyomi != 30 {
		t.Fatalf("byoyomiTime: %v", tu.Reading.Byoyomi)
	}
	if tu.Reading.Count == nil || *tu.Reading.Count != 3 {
		t.Fatalf("byoyomiCount: %v", tu.Reading.Count)
	}
}

func TestDecodeGameResultShapes(t *testing.T) {
	for _, raw := range []string{
		`{"type":"game_result","winner":"draw","reason":"draw"}`,
		`{"type":"game_result","gameResult":{"winner":"draw","reason":"draw"}}`,
	} {
		ev, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		gr := ev.(GameResult)
		if gr.Result.Winner != "draw" || gr.Result.Reason != "draw" {
			t.Fatalf("%s: got %+v", raw, gr.Result)
		}
	}
}

func TestDecodeUnknownAndMalformed(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"chat","text":"hi"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if u, ok := ev.(Unknown); !ok || u.Kind() != "chat" {
		t.Fatalf("expected Unknown chat, got %#v", ev)
	}
	for _, raw := range []string{`not json`, `{"kind":"move"}`, `[1,2]`, `{"type":5}`} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestDecodeSimpleKinds(t *testing.T) {
	cases := map[string]Kind{
		`{"type":"start"}`:                                      KindStart,
		`{"type":"pass"}`:                                       KindPass,
		`{"type":"draw_request"}`:                               KindDrawRequest,
		`{"type":"draw_response","accepted":true}`:              KindDrawResponse,
		`{"type":"end","result":"resign","winner":"black"}`:     KindEnd,
		`{"type":"opponent_joined","color":"white","rating":0}`: KindOpponentJoined,
		`{"type":"reset"}`:                                      KindReset,
	}
	for raw, want := range cases {
		ev, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		if ev.Kind() != want {
			t.Fatalf("%s: expected %s, got %s", raw, want, ev.Kind())
		}
	}
	ev, _ := Decode([]byte(`{"type":"draw_response","accepted":true}`))
	if !ev.(DrawResponse).Accepted {
		t.Fatalf("accepted flag lost")
	}
	ev, _ = Decode([]byte(`{"type":"opponent_joined","color":"white","nickname":"돌잡이","rating":1520}`))
	oj := ev.(OpponentJoined)
	if oj.Color != board.White || oj.Nickname != "돌잡이" || oj.Rating == nil || *oj.Rating != 1520 {
		t.Fatalf("opponent_joined: %+v", oj)
	}
}

func TestFramesAreStamped(t *testing.T) {
	b, err := PlaceFrame(board.Black, 45, 15).Stamped("sk", "ROOM1").Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"type": "move", "move": "place", "color": "black",
		"coordinate": float64(45), "boardSize": float64(15),
		"sessionKey": "sk", "roomCode": "ROOM1",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected fields: %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: expected %v, got %v", k, v, got[k])
		}
	}

	b, _ = DrawResponseFrame(false).Marshal()
	if string(b) != `{"type":"draw_response","accepted":false}` {
		t.Fatalf("draw_response: %s", b)
	}
	b, _ = ResignFrame(board.White).Marshal()
	if string(b) != `{"type":"end","color":"white","result":"resign"}` {
		t.Fatalf("resign: %s", b)
	}
}
