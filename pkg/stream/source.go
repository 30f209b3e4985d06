package stream

import (
	"context"
)

// Source is one open event stream. Recv blocks until the next data payload
// arrives; any error, including io.EOF, ends the stream.
type Source interface {
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens the stream endpoint for a job kind.
type Dialer interface {
	Dial(ctx context.Context, kind string) (Source, error)
}

type DialerFunc func(ctx context.Context, kind string) (Source, error)

func (f DialerFunc) Dial(ctx context.Context, kind string) (Source, error) {
	return f(ctx, kind)
}
