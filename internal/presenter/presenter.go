package presenter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/park285/doljabi-session/internal/room"
	"github.com/park285/doljabi-session/pkg/sessiondto"
)

// Presenter delivers formatted room updates without coupling to the input loop.
type Presenter struct {
	f    *Formatter
	send func(text string) error

	mu   sync.Mutex
	last string // layout of the last drawn board
}

func NewPresenter(f *Formatter, send func(text string) error) *Presenter {
	return &Presenter{f: f, send: send}
}

// Update writes status and notice lines, and redraws the screen only when
// something other than the clocks changed.
func (p *Presenter) Update(u room.Update) error {
	if p == nil || p.send == nil {
		return nil
	}
	var lines []string
	if s := p.f.ChannelState(u.Status); s != "" {
		lines = append(lines, s)
	}
	if n := p.f.Notice(u.Notice, u.View); n != "" {
		lines = append(lines, n)
	}

	key := layout(u.View)
	p.mu.Lock()
	redraw := key != p.last
	p.last = key
	p.mu.Unlock()
	if redraw {
		lines = append(lines, p.f.View(u.View))
	}
	if len(lines) == 0 {
		return nil
	}
	return p.send(strings.Join(lines, "\n"))
}

// Screen writes the full view unconditionally.
func (p *Presenter) Screen(v sessiondto.View) error {
	if p == nil || p.send == nil {
		return nil
	}
	p.mu.Lock()
	p.last = layout(v)
	p.mu.Unlock()
	return p.send(p.f.View(v))
}

// Clocks writes only the two clock lines.
func (p *Presenter) Clocks(v sessiondto.View) error {
	if p == nil || p.send == nil {
		return nil
	}
	return p.send(p.f.Clock(v.Black) + "\n" + p.f.Clock(v.White))
}

// Reject writes a rejected intent. input is the raw command text, if any.
func (p *Presenter) Reject(err error, input string) error {
	if p == nil || p.send == nil || err == nil {
		return nil
	}
	return p.send(p.f.Error(err, input))
}

func layout(v sessiondto.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|%t|%s|", v.Phase, v.Turn, v.Draw, v.Connected, v.LocalColor)
	if v.LastMove != nil {
		fmt.Fprintf(&sb, "%d,%d", v.LastMove.Row, v.LastMove.Col)
	}
	sb.WriteString("|")
	if v.Selection != nil {
		fmt.Fprintf(&sb, "%d,%d", v.Selection.Row, v.Selection.Col)
	}
	fmt.Fprintf(&sb, "|%d", len(v.WinningLine))
	for _, row := range v.Board {
		for _, c := range row {
			if c != "" {
				sb.WriteString(c[:1])
			} else {
				sb.WriteString(".")
			}
		}
	}
	return sb.String()
}
