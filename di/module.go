//go:generate mockgen -source=module.go -package=di_test -destination=module_mock_test.go

package di

import (
	"context"

	"github.com/pkg/errors"
)

// Module registers a group of beans. Generated code implements it.
type Module interface {
	Install(c *Context) error
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(c *Context) error

// Install calls f(c).
func (f ModuleFunc) Install(c *Context) error { return f(c) }

// Modules installs its members in order.
type Modules []Module

// Install stops at the first failing member. The error names its position.
func (ms Modules) Install(c *Context) error {
	for i, m := range ms {
		if m == nil {
			continue
		}
		if err := m.Install(c); err != nil {
			return errors.Wrapf(err, "di: installing module %d", i)
		}
	}
	return nil
}

// Install installs mods into c in order.
func (c *Context) Install(mods ...Module) error {
	return Modules(mods).Install(c)
}

// Start installs mods and, when the context was built with
// WithEagerBootstrap(true), runs every creator.
func (c *Context) Start(ctx context.Context, mods ...Module) error {
	if err := c.Install(mods...); err != nil {
		return err
	}
	if !c.settings.eager {
		return nil
	}
	c.log.Debug("eager bootstrap")
	return c.ComputeAll(ctx)
}
