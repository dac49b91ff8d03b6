package pushchan

import "context"

// Frame is one push-channel message after frame-shape normalization: text and
// binary websocket frames both arrive here as raw bytes, so consumers never
// see the transport representation.
type Frame struct {
	Binary bool
	Data   []byte
}

// State tracks the channel connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type FrameCallback func(Frame)

type StateCallback func(State)

// Channel is the long-lived server-to-client push stream.
type Channel interface {
	Connect(ctx context.Context) error
	OnFrame(cb FrameCallback) int
	RemoveFrameCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}
