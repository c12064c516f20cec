package di

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrAlreadyExists is matched (errors.Is) by AlreadyExistsError.
	ErrAlreadyExists = errors.New("di: bean already exists")

	// ErrNotExist is matched (errors.Is) by NotExistError.
	ErrNotExist = errors.New("di: bean does not exist")

	// ErrCycle is matched (errors.Is) by CycleError.
	ErrCycle = errors.New("di: cycle in bean graph")

	// ErrTypeMismatch is matched by TypeMismatchError and DescriptorMismatchError.
	ErrTypeMismatch = errors.New("di: type mismatch")

	// ErrClosed is returned by every operation on a context after Close.
	ErrClosed = errors.New("di: context closed")

	// ErrReadOnly is returned when a write method is called through a read-only view.
	ErrReadOnly = errors.New("di: write method called through a read-only view")

	// ErrNilFactory is returned when AddCreator is given a nil factory.
	ErrNilFactory = errors.New("di: nil factory")

	// ErrFactoryPanic is wrapped (inside a FactoryError) when a creator panics.
	ErrFactoryPanic = errors.New("di: factory panic")
)

// AlreadyExistsError is returned when a registration hits an occupied slot.
//
// Kind tells what occupies the slot: "instance", "creator" or "construction"
// (a creator that is running right now).
type AlreadyExistsError struct {
	Type string
	Name string
	Kind string
}

// Error implements the error interface.
func (e AlreadyExistsError) Error() string {
	// Example: di: bean *app.Counter named "" already exists (instance)
	return "di: bean " + e.Type + " named " + strconv.Quote(e.Name) + " already exists (" + e.Kind + ")"
}

// Is reports whether target is ErrAlreadyExists.
func (e AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// NotExistError is returned when a slot has no instance to hand out.
//
// Type is the human-readable bean type, Name the requested name.
type NotExistError struct {
	Type string
	Name string
}

// Error implements the error interface.
func (e NotExistError) Error() string {
	// Example: di: bean *app.Counter named "primary" does not exist
	return "di: bean " + e.Type + " named " + strconv.Quote(e.Name) + " does not exist"
}

// Is reports whether target is ErrNotExist.
func (e NotExistError) Is(target error) bool { return target == ErrNotExist }

// CycleError is returned when a creator asks, directly or transitively, for
// the bean it is constructing. Chain lists the slots from the outermost
// construction to the repeated one.
type CycleError struct {
	Chain []string
}

// Error implements the error interface.
func (e CycleError) Error() string {
	// Example: di: cycle in bean graph: *app.Alpha -> *app.Beta -> *app.Alpha
	return "di: cycle in bean graph: " + strings.Join(e.Chain, " -> ")
}

// Is reports whether target is ErrCycle.
func (e CycleError) Is(target error) bool { return target == ErrCycle }

// FactoryError wraps the error returned (or the panic raised) by a creator.
// The creator is consumed; the slot stays empty.
type FactoryError struct {
	Type string
	Name string
	Err  error
}

// Error implements the error interface.
func (e FactoryError) Error() string {
	return "di: creating " + e.Type + " named " + strconv.Quote(e.Name) + ": " + e.Err.Error()
}

// Unwrap exposes the factory's own error.
func (e FactoryError) Unwrap() error { return e.Err }

// TypeMismatchError is returned when a slot holds a value that is not of the
// requested Go type. This only happens when distinct types share one identity
// through Identified.
type TypeMismatchError struct {
	Want string
	Got  string
}

// Error implements the error interface.
func (e TypeMismatchError) Error() string {
	return "di: bean has type " + e.Got + ", not " + e.Want
}

// Is reports whether target is ErrTypeMismatch.
func (e TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// DescriptorMismatchError is returned when a descriptor carries a method
// written for a different bean type than the one it is attached to.
type DescriptorMismatchError struct {
	Bean   string
	Method string
}

// Error implements the error interface.
func (e DescriptorMismatchError) Error() string {
	return "di: descriptor method " + e.Method + " does not accept bean " + e.Bean
}

// Is reports whether target is ErrTypeMismatch.
func (e DescriptorMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
