// Package clock keeps the display clocks of both players between server timer updates.
// The server is the source of truth: Apply overwrites, Tick only estimates.
package clock

import (
	"math"
	"time"

	"github.com/park285/doljabi-session/internal/board"
)

// Settings is the time control of a session.
type Settings struct {
	MainTime      time.Duration
	ByoyomiPeriod time.Duration
	ByoyomiCount  int
	Increment     time.Duration
}

// Player is one side's clock state.
type Player struct {
	Main      time.Duration
	Byoyomi   time.Duration
	Periods   int
	InByoyomi bool
	// Exhausted is display only: the last period ran out locally or the server
	// reported none left. It never ends the game.
	Exhausted bool
	Running   bool
}

// Reading is a server timer update in seconds. Nil fields are absent.
type Reading struct {
	Main    *float64
	Byoyomi *float64
	Count   *int
}

type Clock struct {
	settings Settings
	players  map[board.Color]*Player
	running  board.Color
	carry    time.Duration
}

func New(s Settings) *Clock {
	c := &Clock{settings: s}
	c.Reset()
	return c
}

func (c *Clock) Settings() Settings { return c.settings }

// Reset restores both players to the configured time control and stops the clock.
func (c *Clock) Reset() {
	c.players = map[board.Color]*Player{
		board.Black: c.fresh(),
		board.White: c.fresh(),
	}
	c.running = board.Empty
	c.carry = 0
}

func (c *Clock) fresh() *Player {
	p := &Player{
		Main:    c.settings.MainTime,
		Byoyomi: c.settings.ByoyomiPeriod,
		Periods: c.settings.ByoyomiCount,
	}
	if p.Main <= 0 {
		p.Main = 0
		p.InByoyomi = true
		p.Exhausted = p.Periods <= 0
	}
	return p
}

// Start runs first's clock. Calling Start while running is a no-op.
func (c *Clock) Start(first board.Color) {
	if c.running != board.Empty || !first.Valid() {
		return
	}
	c.run(first)
}

// Switch is called after an accepted move or pass: the mover gets its
// increment (or a renewed byoyomi period) and next starts running.
func (c *Clock) Switch(next board.Color) {
	if mover := c.players[c.running]; mover != nil {
		mover.Running = false
		if mover.InByoyomi {
			if mover.Periods > 0 {
				mover.Byoyomi = c.settings.ByoyomiPeriod
			}
		} else {
			mover.Main += c.settings.Increment
		}
	}
	if !next.Valid() {
		c.running = board.Empty
		return
	}
	c.run(next)
}

func (c *Clock) run(color board.Color) {
	for col, p := range c.players {
		p.Running = col == color
	}
	c.running = color
	c.carry = 0
}

// Stop pauses both players. Used on terminal results.
func (c *Clock) Stop() {
	for _, p := range c.players {
		p.Running = false
	}
	c.running = board.Empty
	c.carry = 0
}

func (c *Clock) Running() board.Color { return c.running }

// Tick advances the running player's display clock by whole seconds;
// sub-second remainders carry over to the next tick.
func (c *Clock) Tick(elapsed time.Duration) {
	p := c.players[c.running]
	if p == nil || elapsed <= 0 {
		return
	}
	c.carry += elapsed
	for c.carry >= time.Second {
		c.carry -= time.Second
		c.second(p)
	}
}

func (c *Clock) second(p *Player) {
	if p.Exhausted {
		return
	}
	if !p.InByoyomi {
		p.Main -= time.Second
		if p.Main > 0 {
			return
		}
		p.Main = 0
		p.InByoyomi = true
		if p.Periods <= 0 {
			p.Exhausted = true
		} else if p.Byoyomi <= 0 {
			p.Byoyomi = c.settings.ByoyomiPeriod
		}
		return
	}
	p.Byoyomi -= time.Second
	if p.Byoyomi > 0 {
		return
	}
	p.Periods--
	if p.Periods > 0 {
		p.Byoyomi = c.settings.ByoyomiPeriod
		return
	}
	p.Periods = 0
	p.Byoyomi = 0
	p.Exhausted = true
}

// Apply overwrites color's clock with the present, valid fields of r.
// Negative or NaN values are ignored. It reports whether anything changed.
func (c *Clock) Apply(color board.Color, r Reading) bool {
	p := c.players[color]
	if p == nil {
		return false
	}
	before := *p
	if v, ok := seconds(r.Main); ok {
		p.Main = v
		p.InByoyomi = v == 0
	}
	if v, ok := seconds(r.Byoyomi); ok {
		p.Byoyomi = v
	}
	if r.Count != nil && *r.Count >= 0 {
		p.Periods = *r.Count
	}
	p.Exhausted = p.InByoyomi && p.Periods == 0
	if color == c.running {
		c.carry = 0
	}
	return *p != before
}

func seconds(v *float64) (time.Duration, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, false
	}
	return time.Duration(math.Round(*v)) * time.Second, true
}

// Snapshot returns a copy of color's clock.
func (c *Clock) Snapshot(color board.Color) Player {
	if p := c.players[color]; p != nil {
		return *p
	}
	return Player{}
}
