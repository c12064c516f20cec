package di

import (
	"context"
	"errors"
	"fmt"
)

// Close releases every bean the context built or was given, newest first, and
// drops its pending creators. Release errors are joined. If ctx ends before
// all beans are released the rest are skipped and ctx's error is part of the
// result.
//
// Closing a child does not touch its parent. After Close every operation on
// the context, including a second Close, returns ErrClosed. A construction
// still running when Close is called releases its product on completion.
func (c *Context) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	handles := c.handles
	c.handles = nil
	c.slots = make(map[Key]*slot)
	c.pending = nil
	c.methods = make(map[Capability][]boundMethod)
	c.mu.Unlock()

	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			c.log.WithField("skipped", i+1).Warn("close interrupted")
			errs = append(errs, fmt.Errorf("di: close interrupted with %d beans unreleased: %w", i+1, err))
			break
		}
		h := handles[i]
		err := h.close()
		c.stats.live.Dec(1)
		if err != nil {
			c.entry(h.ref, h.typ).WithError(err).Warn("release failed")
			errs = append(errs, fmt.Errorf("di: releasing %s: %w", label(h.ref, h.typ), err))
			continue
		}
		if h.release != nil {
			c.stats.released.Inc(1)
		}
	}

	c.log.WithField("beans", len(handles)).Debug("context closed")
	return errors.Join(errs...)
}
