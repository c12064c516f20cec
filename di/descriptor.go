package di

import (
	"context"
	"reflect"
)

// Capability identifies a kind of method beans can advertise: the pair of its
// parameters type P (fixed when the method is registered) and its arguments
// type A (supplied by each caller).
type Capability struct {
	params reflect.Type
	args   reflect.Type
}

// CapabilityOf returns the Capability for parameters P and arguments A.
func CapabilityOf[P, A any]() Capability {
	return Capability{params: reflect.TypeFor[P](), args: reflect.TypeFor[A]()}
}

// String returns "P(A)", e.g. "counter.Announce(struct {})".
func (c Capability) String() string {
	if c.params == nil {
		return "<nil>"
	}
	return c.params.String() + "(" + c.args.String() + ")"
}

// ReadMethod is a capability method that may only read the context.
type ReadMethod[B, P, A any] func(ctx context.Context, bean B, r Reader, params P, args A) error

// WriteMethod is a capability method that may register beans and run
// creators on the context that owns the bean.
type WriteMethod[B, P, A any] func(ctx context.Context, bean B, c *Context, params P, args A) error

// Describer is implemented by beans that carry their own descriptor. It is
// consulted when the bean is stored without WithDescriptor.
type Describer interface {
	Describe() *Descriptor
}

// Descriptor lists the capability methods of one bean type, in the order
// they were added. A descriptor is bound when its bean is stored; methods
// added afterwards are not seen by that context.
type Descriptor struct {
	methods []method
}

type method struct {
	cp      Capability
	name    string
	bean    string
	params  any
	mutable bool
	accepts func(bean any) bool
	invoke  func(ctx context.Context, bean any, r Reader, args any) error
}

// NewDescriptor returns an empty descriptor.
func NewDescriptor() *Descriptor { return &Descriptor{} }

// AddReadMethod adds fn under capability (P, A) and returns d.
func AddReadMethod[B, P, A any](d *Descriptor, name string, params P, fn ReadMethod[B, P, A]) *Descriptor {
	if fn == nil {
		panic("di: nil read method " + name)
	}
	d.methods = append(d.methods, method{
		cp:      CapabilityOf[P, A](),
		name:    name,
		bean:    typeName[B](),
		params:  params,
		accepts: accepts[B],
		invoke: func(ctx context.Context, bean any, r Reader, args any) error {
			b, _ := bean.(B)
			a, _ := args.(A)
			return fn(ctx, b, r, params, a)
		},
	})
	return d
}

// AddWriteMethod adds fn under capability (P, A) and returns d. Calls that
// reach fn through a read-only view fail with ErrReadOnly.
func AddWriteMethod[B, P, A any](d *Descriptor, name string, params P, fn WriteMethod[B, P, A]) *Descriptor {
	if fn == nil {
		panic("di: nil write method " + name)
	}
	d.methods = append(d.methods, method{
		cp:      CapabilityOf[P, A](),
		name:    name,
		bean:    typeName[B](),
		params:  params,
		mutable: true,
		accepts: accepts[B],
		invoke: func(ctx context.Context, bean any, r Reader, args any) error {
			c := r.writable()
			if c == nil {
				return ErrReadOnly
			}
			b, _ := bean.(B)
			a, _ := args.(A)
			return fn(ctx, b, c, params, a)
		},
	})
	return d
}

func accepts[B any](bean any) bool {
	_, ok := bean.(B)
	return ok
}

// Len returns the number of methods in d.
func (d *Descriptor) Len() int {
	if d == nil {
		return 0
	}
	return len(d.methods)
}

// Capabilities lists the distinct capabilities of d in first-added order.
func (d *Descriptor) Capabilities() []Capability {
	if d == nil {
		return nil
	}
	seen := make(map[Capability]bool)
	var out []Capability
	for _, m := range d.methods {
		if !seen[m.cp] {
			seen[m.cp] = true
			out = append(out, m.cp)
		}
	}
	return out
}

// check verifies every method of d can be called with bean.
func (d *Descriptor) check(bean any) error {
	for _, m := range d.methods {
		if !m.accepts(bean) {
			got := "<nil>"
			if bean != nil {
				got = reflect.TypeOf(bean).String()
			}
			return DescriptorMismatchError{Bean: got, Method: m.name + " (" + m.bean + ")"}
		}
	}
	return nil
}
