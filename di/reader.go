package di

import "reflect"

// Reader is the read-only surface of a context: lookups and capability
// enumeration, no registration and no construction. *Context implements it;
// ReadOnly returns a view that hides the write surface.
//
// The interface is sealed; only this package implements it.
type Reader interface {
	lookup(ref slotRef, typ string) (any, error)
	capabilities(cp Capability) []boundMethod
	writable() *Context
}

// ReadOnly returns a view of c that only supports Get, Has and Methods.
// Write methods reached through it fail with ErrReadOnly.
func (c *Context) ReadOnly() Reader { return readView{c: c} }

type readView struct {
	c *Context
}

func (v readView) lookup(ref slotRef, typ string) (any, error) { return v.c.lookup(ref, typ) }

func (v readView) capabilities(cp Capability) []boundMethod { return v.c.capabilities(cp) }

func (readView) writable() *Context { return nil }

func (c *Context) writable() *Context { return c }

// lookup walks c and its ancestors for an instance at ref. A local creator
// or construction stops the walk: the slot exists here, it just is not ready.
func (c *Context) lookup(ref slotRef, typ string) (any, error) {
	for cur := c; cur != nil; cur = cur.parent {
		v, found, err := cur.localLookup(ref, typ)
		if found || err != nil {
			return v, err
		}
	}
	return nil, NotExistError{Type: typ, Name: ref.name}
}

// localLookup reports found=false only when ref is unknown to c.
func (c *Context) localLookup(ref slotRef, typ string) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, false, ErrClosed
	}
	if _, ok := c.building[ref]; ok {
		return nil, false, NotExistError{Type: typ, Name: ref.name}
	}
	switch src := c.sourceAt(ref).(type) {
	case *handle:
		return src.value, true, nil
	case *creatorSource:
		return nil, false, NotExistError{Type: typ, Name: ref.name}
	}
	return nil, false, nil
}

// Get returns the instance stored under (T, name) in r or, when r has no such
// slot, in its nearest ancestor that has one. It never runs a creator: a
// pending creator reports NotExistError.
func Get[T any](r Reader, name string) (T, error) {
	v, err := r.lookup(slotRef{key: KeyOf[T](), name: name}, typeName[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return valueAs[T](v)
}

// MustGet is like Get but panics on error. Meant for wiring code and tests.
func MustGet[T any](r Reader, name string) T {
	v, err := Get[T](r, name)
	if err != nil {
		panic(err)
	}
	return v
}

// Has reports whether Get[T](r, name) would succeed.
func Has[T any](r Reader, name string) bool {
	_, err := Get[T](r, name)
	return err == nil
}

// valueAs converts a stored value to T. A nil interface stored for an
// interface or pointer bean yields the zero T.
func valueAs[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if v == nil {
		return zero, nil
	}
	return zero, TypeMismatchError{Want: typeName[T](), Got: reflect.TypeOf(v).String()}
}
