package di

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Retrying wraps factory so that failed attempts are retried on the schedule
// returned by newBackOff (exponential when nil). Each construction gets a
// fresh schedule. Retries stop when ctx ends.
//
// Errors that another attempt cannot fix are returned at once: cycles,
// missing dependencies, a closed context and ctx errors.
func Retrying[T any](factory Factory[T], newBackOff func() backoff.BackOff) Factory[T] {
	if factory == nil {
		return nil
	}
	return func(ctx context.Context, c *Context) (T, error) {
		var b backoff.BackOff
		if newBackOff != nil {
			b = newBackOff()
		} else {
			b = backoff.NewExponentialBackOff()
		}

		var out T
		attempt := 0
		op := func() error {
			attempt++
			v, err := factory(ctx, c)
			if err == nil {
				out = v
				return nil
			}
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		notify := func(err error, next time.Duration) {
			c.log.WithError(err).WithFields(logrus.Fields{
				"bean":    typeName[T](),
				"attempt": attempt,
				"next":    next,
			}).Info("creator attempt failed, retrying")
		}

		if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
			var zero T
			return zero, err
		}
		return out, nil
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrCycle),
		errors.Is(err, ErrNotExist),
		errors.Is(err, ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
