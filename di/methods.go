package di

import (
	"context"
	"iter"
	"slices"
)

// boundMethod is a descriptor method attached to a stored bean.
type boundMethod struct {
	m    *method
	bean any
	typ  string
	name string
}

// bindMethods appends h's methods to the side table. Caller holds the write lock.
func (c *Context) bindMethods(h *handle) {
	if h.desc == nil {
		return
	}
	for i := range h.desc.methods {
		m := &h.desc.methods[i]
		c.methods[m.cp] = append(c.methods[m.cp], boundMethod{
			m:    m,
			bean: h.value,
			typ:  h.typ,
			name: h.ref.name,
		})
	}
}

func (c *Context) capabilities(cp Capability) []boundMethod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	return slices.Clone(c.methods[cp])
}

// Methods returns the methods of capability (P, A) advertised by beans stored
// in r itself, in the order the beans were stored. Ancestors are not listed.
//
// The set is fixed when Methods is called; beans stored later need another
// call. When r is a read-only view, write methods are listed but fail with
// ErrReadOnly.
func Methods[P, A any](r Reader) iter.Seq[Call[P, A]] {
	bound := r.capabilities(CapabilityOf[P, A]())
	return func(yield func(Call[P, A]) bool) {
		for _, b := range bound {
			if !yield(Call[P, A]{bound: b, r: r}) {
				return
			}
		}
	}
}

// Call is one capability method bound to its bean and to the reader it was
// found through.
type Call[P, A any] struct {
	bound boundMethod
	r     Reader
}

// Call runs the method with args. Errors from the method are returned as is.
func (c Call[P, A]) Call(ctx context.Context, args A) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.bound.m.invoke(ctx, c.bound.bean, c.r, args)
}

// Params returns the parameters the method was registered with.
func (c Call[P, A]) Params() P {
	p, _ := c.bound.m.params.(P)
	return p
}

// Mutable reports whether this is a write method.
func (c Call[P, A]) Mutable() bool { return c.bound.m.mutable }

// Bean returns the bean the method is bound to.
func (c Call[P, A]) Bean() any { return c.bound.bean }

// Name returns the bean's name in its context ("" when unnamed).
func (c Call[P, A]) Name() string { return c.bound.name }

// Method returns the method's registered name.
func (c Call[P, A]) Method() string { return c.bound.m.name }

// String returns e.g. `*app.Counter["primary"].announce`.
func (c Call[P, A]) String() string {
	return label(slotRef{name: c.bound.name}, c.bound.typ) + "." + c.bound.m.name
}
