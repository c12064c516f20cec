package di

import "reflect"

// Key is the identity of a logical bean type. Slots are keyed by it.
//
// Keys are only obtained through KeyOf; the zero Key matches nothing.
type Key struct {
	id reflect.Type
}

// Identified lets a bean type pick its identity instead of using its own Go
// type. The dynamic type of the returned value becomes the Key, so several Go
// types can share one slot space:
//
//	type repoID struct{}
//	func (*Repo[T]) BeanIdentity() any { return repoID{} }
//
// BeanIdentity is called on the zero value of the bean type (a nil pointer for
// pointer types) and must not dereference its receiver.
type Identified interface {
	BeanIdentity() any
}

// KeyOf returns the Key for bean type T.
func KeyOf[T any]() Key {
	var zero T
	if id, ok := any(zero).(Identified); ok {
		if v := id.BeanIdentity(); v != nil {
			return Key{id: reflect.TypeOf(v)}
		}
	}
	return Key{id: reflect.TypeFor[T]()}
}

// String returns the identity type name, e.g. "*app.Counter".
func (k Key) String() string {
	if k.id == nil {
		return "<nil>"
	}
	return k.id.String()
}

// typeName is the human-readable name used in error messages.
func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
