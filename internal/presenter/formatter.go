package presenter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/doljabi-session/internal/channel"
	"github.com/park285/doljabi-session/internal/msgcat"
	"github.com/park285/doljabi-session/internal/session"
	"github.com/park285/doljabi-session/internal/voice"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

const (
	markEmpty     = "·"
	markBlack     = "●"
	markWhite     = "○"
	markLastBlack = "◆"
	markLastWhite = "◇"
	markWinning   = "★"
	markSelection = "◎"
)

// Formatter renders session views into terminal-friendly text blocks.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) text(key string, data map[string]any) string {
	if f == nil || f.cat == nil {
		return key
	}
	return f.cat.Text(key, data)
}

// Board draws the grid with row 1 at the bottom and column A on the left.
func (f *Formatter) Board(v sessiondto.View) string {
	n := v.BoardSize
	if n <= 0 || len(v.Board) < n {
		return ""
	}
	win := make(map[sessiondto.Point]bool, len(v.WinningLine))
	for _, p := range v.WinningLine {
		win[p] = true
	}

	var sb strings.Builder
	header := func() {
		sb.WriteString("   ")
		for c := 0; c < n; c++ {
			sb.WriteString(" ")
			sb.WriteRune('A' + rune(c))
		}
		sb.WriteString("\n")
	}
	header()
	for r := n - 1; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%2d ", r+1))
		for c := 0; c < n; c++ {
			sb.WriteString(" ")
			sb.WriteString(cellMark(v, r, c, win))
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	header()
	return strings.TrimRight(sb.String(), "\n")
}

func cellMark(v sessiondto.View, r, c int, win map[sessiondto.Point]bool) string {
	p := sessiondto.Point{Row: r, Col: c}
	stone := ""
	if r < len(v.Board) && c < len(v.Board[r]) {
		stone = v.Board[r][c]
	}
	switch {
	case win[p]:
		return markWinning
	case stone == "black":
		if v.LastMove != nil && *v.LastMove == p {
			return markLastBlack
		}
		return markBlack
	case stone == "white":
		if v.LastMove != nil && *v.LastMove == p {
			return markLastWhite
		}
		return markWhite
	case v.Selection != nil && *v.Selection == p:
		return markSelection
	default:
		return markEmpty
	}
}

func (f *Formatter) Color(c string) string {
	if c != "black" && c != "white" {
		return c
	}
	return f.text("color."+c, nil)
}

func (f *Formatter) Header(v sessiondto.View) string {
	return f.text("view.header", map[string]any{
		"Room": v.RoomCode,
		"Game": v.Game,
		"Size": v.BoardSize,
		"Me":   f.Color(v.LocalColor),
	})
}

// Status is the turn line, or the waiting line before the game starts.
func (f *Formatter) Status(v sessiondto.View) string {
	switch v.Phase {
	case string(session.PhaseConnecting), string(session.PhaseWaiting):
		return f.text("view.waiting", nil)
	case string(session.PhaseTerminal):
		if v.Outcome != nil {
			return f.Outcome(*v.Outcome)
		}
		return ""
	}
	line := f.text("view.turn", map[string]any{
		"Color": f.Color(v.Turn),
		"Mine":  v.Turn == v.LocalColor,
	})
	if v.Draw == string(session.DrawSentByLocal) {
		line += "\n" + f.text("view.draw_pending_local", nil)
	}
	return line
}

func (f *Formatter) Clock(p sessiondto.PlayerView) string {
	return f.text("view.clock", map[string]any{
		"Color":     f.Color(p.Color),
		"Name":      p.Nickname,
		"Main":      formatClock(p.Main),
		"InByoyomi": p.InByoyomi,
		"Byoyomi":   formatClock(p.Byoyomi),
		"Periods":   p.Periods,
		"Exhausted": p.Exhausted,
	})
}

func (f *Formatter) Outcome(o sessiondto.OutcomeView) string {
	reason := f.text("reason."+o.Reason, nil)
	if o.Winner == "draw" {
		return f.text("outcome.draw", map[string]any{"Reason": reason})
	}
	return f.text("outcome.win", map[string]any{"Winner": f.Color(o.Winner), "Reason": reason})
}

// Notice renders a notice key emitted by the session.
func (f *Formatter) Notice(key string, v sessiondto.View) string {
	switch key {
	case "":
		return ""
	case session.NoticeOpponentJoined:
		opp := "white"
		if v.LocalColor == "white" {
			opp = "black"
		}
		name := v.Player(opp).Nickname
		if name == "" {
			name = f.Color(opp)
		}
		return f.text(key, map[string]any{"Nickname": name})
	case session.NoticeGameOver:
		if v.Outcome == nil {
			return ""
		}
		return f.text(key, map[string]any{"Outcome": f.Outcome(*v.Outcome)})
	default:
		return f.text(key, nil)
	}
}

func (f *Formatter) ChannelState(s channel.State) string {
	if s == "" {
		return ""
	}
	return f.text("status."+string(s), nil)
}

// Error turns an intent rejection into a user-facing line.
func (f *Formatter) Error(err error, input string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, voice.ErrParseFailure) {
		return f.text("error.parse_failure", map[string]any{"Input": input})
	}
	de := session.DomainError(err)
	if de.Code == "error.internal" {
		return f.text(de.Code, map[string]any{"Detail": de.Message})
	}
	return f.text(de.Code, nil)
}

// View renders the whole screen: header, clocks, board and status.
func (f *Formatter) View(v sessiondto.View) string {
	parts := []string{f.Header(v), f.Clock(v.Black), f.Clock(v.White)}
	if b := f.Board(v); b != "" {
		parts = append(parts, b)
	}
	if s := f.Status(v); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
