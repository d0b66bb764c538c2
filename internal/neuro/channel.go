package neuro

import (
	"context"
	"errors"
)

// ErrClosed is returned by a channel after Close or once the peer has gone away.
var ErrClosed = errors.New("neuro: channel closed")

// Channel is a bidirectional message link to the Neuro API.
type Channel interface {
	// Send writes one message. It fails once the connection is closed.
	Send(ctx context.Context, msg Message) error
	// Receive blocks until the next message arrives, ctx is done, or the
	// connection fails.
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// ChannelError reports a failure of the underlying connection or a frame that
// cannot be interpreted. It is fatal to the dispatch loop.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return "neuro channel " + e.Op + " failed"
	}
	return "neuro channel " + e.Op + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
