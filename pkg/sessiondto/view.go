package sessiondto

import "time"

type Point struct {
	Row int
	Col int
}

type PlayerView struct {
	Color     string
	Nickname  string
	Rating    int
	HasRating bool
	Main      time.Duration
	Byoyomi   time.Duration
	Periods   int
	InByoyomi bool
	Exhausted bool
	Running   bool
}

type OutcomeView struct {
	Winner string // black, white or draw
	Reason string
}

// Actions are the intents the local player may issue right now.
type Actions struct {
	CanStart       bool
	CanPlace       bool
	CanPass        bool
	CanResign      bool
	CanOfferDraw   bool
	CanRespondDraw bool
}

// View is a read-only snapshot of a session for presentation.
type View struct {
	RoomCode    string
	Game        string
	LocalColor  string
	Phase       string
	Turn        string
	Connected   bool
	Closed      bool
	BoardSize   int
	Board       [][]string
	Selection   *Point
	LastMove    *Point
	WinningLine []Point
	Black       PlayerView
	White       PlayerView
	Draw        string
	Outcome     *OutcomeView
	Actions     Actions
}

// Player returns the view of the given color ("black" or "white").
func (v View) Player(color string) PlayerView {
	if color == "white" {
		return v.White
	}
	return v.Black
}
