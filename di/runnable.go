package di

import (
	"context"
	"iter"

	"github.com/pkg/errors"
)

// Runnable is the parameters type of the built-in run capability, whose
// arguments type is struct{}. Beans advertise it with AddRunnable; RunAll
// calls every one of them.
type Runnable struct {
	Name string
}

// AddRunnable adds fn to d as a run method called name.
func AddRunnable[B any](d *Descriptor, name string, fn func(ctx context.Context, bean B, c *Context) error) *Descriptor {
	return AddWriteMethod(d, name, Runnable{Name: name},
		func(ctx context.Context, bean B, c *Context, _ Runnable, _ struct{}) error {
			return fn(ctx, bean, c)
		})
}

// Runnables lists the run methods of the beans stored in r.
func Runnables(r Reader) iter.Seq[Call[Runnable, struct{}]] {
	return Methods[Runnable, struct{}](r)
}

// RunAll calls every run method of r in registration order and stops at the
// first error.
func RunAll(ctx context.Context, r Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for call := range Runnables(r) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := call.Call(ctx, struct{}{}); err != nil {
			return errors.Wrapf(err, "di: running %s", call)
		}
	}
	return nil
}
