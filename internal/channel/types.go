package channel

import (
	"context"
	"errors"

	"github.com/park285/doljabi-session/internal/protocol"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
	StateClosed       State = "closed"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	ErrQueueFull    = errors.New("channel send queue full")
	ErrClosed       = errors.New("channel closed")
)

type MessageCallback func(ev protocol.Event)

type StateCallback func(state State)

// HeaderProvider injects headers into the WebSocket handshake.
type HeaderProvider func() map[string]string

// Channel is the transport a room owns for the lifetime of one session.
type Channel interface {
	Connect(ctx context.Context) error
	Send(f protocol.Frame) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	State() State
	Close(ctx context.Context) error
}
