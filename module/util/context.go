package util

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned from Err() when a context returned from WithDone is closed after
// the provided channel is closed.
var ErrChannelClosed = errors.New("channel closed")

// WithDone derives a context that is cancelled once done is closed. After that, Err reports
// ErrChannelClosed unless the parent was cancelled first.
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := &doneCtx{Context: ctx}
	go func() {
		select {
		case <-done:
			c.mu.Lock()
			c.err = ErrChannelClosed
			c.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return c, cancel
}

type doneCtx struct {
	context.Context
	mu  sync.Mutex
	err error
}

func (c *doneCtx) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return c.Context.Err()
}
