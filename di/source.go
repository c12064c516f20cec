package di

import (
	"context"
	"io"
	"reflect"
	"sync"
)

// beanSource is what a slot holds under a name: a pending *creatorSource or
// a materialized *handle. The set is closed.
type beanSource interface {
	isBeanSource()
}

// creatorSource is a factory that has not run yet. It is single-shot: compute
// removes it from its slot before calling run.
type creatorSource struct {
	typ string
	run func(ctx context.Context, c *Context) (any, error)
	cfg beanConfig
}

func (*creatorSource) isBeanSource() {}

// handle owns a materialized bean. The context that stores it is the only
// owner; callers get the value, never the handle.
type handle struct {
	ref   slotRef
	typ   string
	value any
	desc  *Descriptor

	release     func() error
	releaseOnce sync.Once
}

func (*handle) isBeanSource() {}

// close runs the release func once. Later calls return nil.
func (h *handle) close() error {
	var err error
	h.releaseOnce.Do(func() {
		if h.release != nil {
			err = h.release()
		}
	})
	return err
}

// BeanOption configures a registration.
type BeanOption func(*beanConfig)

type beanConfig struct {
	desc    *Descriptor
	release func(bean any) (func() error, error)
	noClose bool
}

// WithDescriptor attaches capability methods to the bean. Without it a bean
// implementing Describer supplies its own descriptor.
func WithDescriptor(d *Descriptor) BeanOption {
	return func(c *beanConfig) { c.desc = d }
}

// WithRelease sets the function run for the bean when its context is closed.
// It replaces the default io.Closer handling. A bean that is not a T is
// rejected with TypeMismatchError when it is stored; a nil bean has nothing
// to release.
func WithRelease[T any](fn func(T) error) BeanOption {
	return func(c *beanConfig) {
		if fn == nil {
			c.release = nil
			return
		}
		c.release = func(v any) (func() error, error) {
			if v == nil {
				return nil, nil
			}
			b, ok := v.(T)
			if !ok {
				return nil, TypeMismatchError{Want: typeName[T](), Got: reflect.TypeOf(v).String()}
			}
			return func() error { return fn(b) }, nil
		}
	}
}

// WithoutClose stops the context from closing the bean on Close, even when it
// implements io.Closer. Use it for beans owned elsewhere.
func WithoutClose() BeanOption {
	return func(c *beanConfig) { c.noClose = true }
}

func newBeanConfig(opts []BeanOption) beanConfig {
	var cfg beanConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// newHandle wraps value and resolves its descriptor and release func.
func newHandle(ref slotRef, typ string, value any, cfg beanConfig) (*handle, error) {
	h := &handle{ref: ref, typ: typ, value: value, desc: cfg.desc}

	if h.desc == nil {
		if d, ok := value.(Describer); ok {
			h.desc = d.Describe()
		}
	}
	if h.desc != nil {
		if err := h.desc.check(value); err != nil {
			return nil, err
		}
	}

	switch {
	case cfg.noClose:
	case cfg.release != nil:
		release, err := cfg.release(value)
		if err != nil {
			return nil, err
		}
		h.release = release
	default:
		if closer, ok := value.(io.Closer); ok {
			h.release = closer.Close
		}
	}
	return h, nil
}
