package session

import (
	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

// View snapshots the session for presentation.
func (s *Session) View() sessiondto.View {
	v := sessiondto.View{
		RoomCode:   s.cfg.RoomCode,
		Game:       string(s.cfg.Game),
		LocalColor: string(s.cfg.LocalColor),
		Phase:      string(s.phase),
		Turn:       string(s.turn),
		Connected:  s.connected,
		Closed:     s.closed,
		BoardSize:  s.board.Size(),
		Draw:       string(s.draw),
		Black:      s.playerView(board.Black),
		White:      s.playerView(board.White),
	}
	rows := s.board.Rows()
	v.Board = make([][]string, len(rows))
	for r, row := range rows {
		v.Board[r] = make([]string, len(row))
		for c, cell := range row {
			v.Board[r][c] = string(cell)
		}
	}
	if s.selection != nil {
		v.Selection = &sessiondto.Point{Row: s.selection.Row, Col: s.selection.Col}
	}
	if s.lastMove != nil {
		v.LastMove = &sessiondto.Point{Row: s.lastMove.Row, Col: s.lastMove.Col}
	}
	for _, c := range s.line {
		v.WinningLine = append(v.WinningLine, sessiondto.Point{Row: c.Row, Col: c.Col})
	}
	if s.outcome != nil {
		winner := string(s.outcome.Winner())
		if s.outcome.Result == ResultDraw {
			winner = "draw"
		}
		v.Outcome = &sessiondto.OutcomeView{Winner: winner, Reason: string(s.outcome.Reason)}
	}

	live := !s.closed && s.connected
	active := live && s.phase == PhaseActive
	myTurn := active && s.turn == s.cfg.LocalColor
	v.Actions = sessiondto.Actions{
		CanStart:       live && s.phase == PhaseWaiting && s.players[s.cfg.LocalColor.Opponent()].joined,
		CanPlace:       myTurn,
		CanPass:        myTurn,
		CanResign:      active,
		CanOfferDraw:   myTurn && s.draw == DrawNone,
		CanRespondDraw: active && s.draw == DrawSentByRemote,
	}
	return v
}

func (s *Session) playerView(color board.Color) sessiondto.PlayerView {
	p := s.players[color]
	ck := s.clock.Snapshot(color)
	pv := sessiondto.PlayerView{
		Color:     string(color),
		Nickname:  p.nickname,
		Main:      ck.Main,
		Byoyomi:   ck.Byoyomi,
		Periods:   ck.Periods,
		InByoyomi: ck.InByoyomi,
		Exhausted: ck.Exhausted,
		Running:   ck.Running,
	}
	if p.rating != nil {
		pv.Rating = *p.rating
		pv.HasRating = true
	}
	return pv
}
