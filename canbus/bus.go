package canbus

import (
	"context"
	"errors"
)

// Bus represents a CAN bus connection which can send and receive CAN frames.
// Implementations are safe for concurrent use by multiple goroutines.
type Bus interface {
	// Send transmits a frame. Context cancellation aborts the operation.
	Send(ctx context.Context, frame Frame) error

	// Receive blocks until a frame is available or the context is cancelled.
	Receive(ctx context.Context) (Frame, error)

	// Close releases resources. Further Send/Receive return ErrClosed.
	Close() error
}

// ErrClosed indicates the bus or endpoint has been closed
var ErrClosed = errors.New("canbus: closed")
