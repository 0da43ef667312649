package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDisconnected is returned once the peer is gone; all later calls
	// fail the same way.
	ErrDisconnected = errors.New("transport: peer disconnected")
	// ErrTimeout is returned when no message arrived within the deadline.
	ErrTimeout = errors.New("transport: receive timed out")
	// ErrSendBufferFull is returned when the peer stopped draining its
	// send queue.
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Conn is one agent's live message channel. Implementations must be safe for
// one concurrent sender and one concurrent receiver.
type Conn interface {
	// Send queues an outbound message. Never blocks on the network.
	Send(msg Envelope) error
	// Receive waits for the next inbound message, a timeout, a disconnect
	// or context cancellation, whichever comes first.
	Receive(ctx context.Context, timeout time.Duration) (Envelope, error)
	// Done is closed when the connection is gone, whatever the reason.
	Done() <-chan struct{}
	// Close tears the connection down, telling the peer why.
	Close(reason string)
	// RemoteAddr identifies the peer for logging and rate limiting.
	RemoteAddr() string
}
