// Package history keeps the append-only per-room chat log that is replayed on join.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("history: store closed")

// Store appends timestamped lines to a room's log and reads them back in order.
type Store interface {
	// Append writes "[YYYY-MM-DD HH:MM:SS] text" to the room's log, creating it if absent.
	Append(ctx context.Context, room, text string) error
	// ReadAll returns every line of the room's log; empty if the room has none.
	ReadAll(ctx context.Context, room string) ([]string, error)
	Close() error
}

// Forgetter is implemented by stores that hold per-room resources. Forget
// releases them; the room's log is kept.
type Forgetter interface {
	Forget(room string)
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
