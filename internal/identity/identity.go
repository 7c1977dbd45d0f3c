// Package identity supplies the opaque session credential and room code a
// session joins with.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/park285/doljabi-session/internal/board"
)

var ErrNoCredentials = errors.New("no session credentials")

// Credentials are opaque to the session except for Color and BoardSize.
type Credentials struct {
	SessionKey string      `json:"session_key"`
	RoomCode   string      `json:"room_code"`
	Color      board.Color `json:"color,omitempty"`
	BoardSize  int         `json:"board_size,omitempty"`
}

// Complete reports whether both the session key and the room code are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.SessionKey) != "" && strings.TrimSpace(c.RoomCode) != ""
}

type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Static returns fixed credentials, typically from config.
type Static Credentials

func (s Static) Credentials(context.Context) (Credentials, error) {
	c := Credentials(s)
	if !c.Complete() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Chain asks each provider in order and returns the first complete result.
// Providers failing with ErrNoCredentials are skipped silently; other errors
// are remembered and returned if nothing succeeds.
type Chain []Provider

func (ch Chain) Credentials(ctx context.Context) (Credentials, error) {
	var lastErr error
	for _, p := range ch {
		if p == nil {
			continue
		}
		c, err := p.Credentials(ctx)
		if err == nil && c.Complete() {
			return c, nil
		}
		if err != nil && !errors.Is(err, ErrNoCredentials) {
			lastErr = err
		}
		if ctx.Err() != nil {
			return Credentials{}, ctx.Err()
		}
	}
	if lastErr != nil {
		return Credentials{}, lastErr
	}
	return Credentials{}, ErrNoCredentials
}
