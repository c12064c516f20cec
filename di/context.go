package di

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// Factory builds a bean on first demand. It may call Compute, Get and the
// registration functions on c. Both ctx and c carry the construction chain
// used for cycle detection, so nested Compute calls go through one of them:
// a nested call through another *Context with a ctx that lost the chain
// waits like any concurrent caller.
type Factory[T any] func(ctx context.Context, c *Context) (T, error)

// Context stores beans by (Key, name), builds them lazily from creators and
// keeps the table of capability methods advertised by its beans.
//
// Registration and construction take the write lock; Get and Methods take the
// read lock. No lock is held while a creator or a method runs.
//
// The *Context handed to a creator shares all state with the context it was
// registered in and additionally knows which construction it belongs to.
type Context struct {
	*contextState
	frame *frame
}

type contextState struct {
	self     *Context
	parent   *Context
	settings settings
	log      logrus.FieldLogger
	stats    *instruments

	mu       sync.RWMutex
	slots    map[Key]*slot
	pending  []pendingCreator
	building map[slotRef]*construction
	methods  map[Capability][]boundMethod
	handles  []*handle
	closed   bool
}

type pendingCreator struct {
	ref slotRef
	typ string
}

// New returns an empty root context.
func New(opts ...Option) *Context {
	return newContext(nil, settings{
		logger: logrus.StandardLogger(),
		prefix: "di",
	}, opts)
}

// Child returns a context whose lookups fall back to c. Registrations and
// constructions on the child never touch c. The child shares c's logger and
// metrics registry unless opts override them.
func (c *Context) Child(opts ...Option) *Context {
	s := c.settings
	s.id = ""
	return newContext(c.self, s, opts)
}

func newContext(parent *Context, s settings, opts []Option) *Context {
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}

	c := &Context{contextState: &contextState{
		parent:   parent,
		settings: s,
		stats:    newInstruments(s.registry, s.prefix),
		slots:    make(map[Key]*slot),
		building: make(map[slotRef]*construction),
		methods:  make(map[Capability][]boundMethod),
	}}
	c.self = c
	fields := logrus.Fields{"context": s.id}
	if parent != nil {
		fields["parent"] = parent.settings.id
	}
	c.log = s.logger.WithFields(fields)
	return c
}

// within returns the view of c handed to the creator running as f.
func (c *Context) within(f *frame) *Context {
	return &Context{contextState: c.contextState, frame: f}
}

// ID returns the context ID used in log fields.
func (c *Context) ID() string { return c.settings.id }

// Parent returns the context lookups fall back to, or nil for a root.
func (c *Context) Parent() *Context { return c.parent }

// Metrics returns the registry the context records into.
func (c *Context) Metrics() metrics.Registry { return c.settings.registry }

// Logger returns the context's logger, already carrying its ID.
func (c *Context) Logger() logrus.FieldLogger { return c.log }

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

// AddInstance stores bean under (T, name). A pending creator at that slot is
// discarded. The bean's descriptor is bound into the capability table at once.
//
// It fails with AlreadyExistsError if an instance is already there or the
// slot's creator is running.
func AddInstance[T any](c *Context, name string, bean T, opts ...BeanOption) error {
	ref := slotRef{key: KeyOf[T](), name: name}
	h, err := newHandle(ref, typeName[T](), bean, newBeanConfig(opts))
	if err != nil {
		return err
	}
	return c.addInstance(h)
}

// AddCreator stores factory under (T, name) without running it. The slot must
// be empty, otherwise AlreadyExistsError is returned.
func AddCreator[T any](c *Context, name string, factory Factory[T], opts ...BeanOption) error {
	if factory == nil {
		return ErrNilFactory
	}
	src := &creatorSource{
		typ: typeName[T](),
		cfg: newBeanConfig(opts),
		run: func(ctx context.Context, c *Context) (any, error) {
			return factory(ctx, c)
		},
	}
	return c.addCreator(slotRef{key: KeyOf[T](), name: name}, src)
}

func (c *Context) addInstance(h *handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, ok := c.building[h.ref]; ok {
		return AlreadyExistsError{Type: h.typ, Name: h.ref.name, Kind: "construction"}
	}

	s := c.slotFor(h.ref.key)
	switch s.get(h.ref.name).(type) {
	case *handle:
		return AlreadyExistsError{Type: h.typ, Name: h.ref.name, Kind: "instance"}
	case *creatorSource:
		c.entry(h.ref, h.typ).Debug("instance replaces pending creator")
	}

	c.store(s, h)
	c.entry(h.ref, h.typ).Debug("instance added")
	return nil
}

func (c *Context) addCreator(ref slotRef, src *creatorSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, ok := c.building[ref]; ok {
		return AlreadyExistsError{Type: src.typ, Name: ref.name, Kind: "construction"}
	}

	s := c.slotFor(ref.key)
	switch s.get(ref.name).(type) {
	case *handle:
		return AlreadyExistsError{Type: src.typ, Name: ref.name, Kind: "instance"}
	case *creatorSource:
		return AlreadyExistsError{Type: src.typ, Name: ref.name, Kind: "creator"}
	}

	s.put(ref.name, src)
	c.pending = append(c.pending, pendingCreator{ref: ref, typ: src.typ})
	c.entry(ref, src.typ).Debug("creator added")
	return nil
}

// store puts h into s and binds its methods. Caller holds the write lock.
func (c *Context) store(s *slot, h *handle) {
	if prev := s.put(h.ref.name, h); prev != nil {
		if _, ok := prev.(*handle); ok {
			panic("di: instance overwritten at " + h.ref.String())
		}
	}
	c.handles = append(c.handles, h)
	c.bindMethods(h)
	c.stats.live.Inc(1)
}

func (c *Context) slotFor(k Key) *slot {
	s, ok := c.slots[k]
	if !ok {
		s = newSlot()
		c.slots[k] = s
	}
	return s
}

// sourceAt returns what the slot holds under ref. Caller holds a lock.
func (c *Context) sourceAt(ref slotRef) beanSource {
	s, ok := c.slots[ref.key]
	if !ok {
		return nil
	}
	return s.get(ref.name)
}

func (c *Context) entry(ref slotRef, typ string) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{"bean": typ, "name": ref.name})
}

// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

// Entry describes one occupied slot of a context.
type Entry struct {
	Type     string
	Name     string
	Instance bool // false: a creator that has not run yet
}

// Entries lists the local slots (parents excluded), sorted by type then name.
// Constructions in flight are not listed.
func (c *Context) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entry
	add := func(src beanSource, name string) {
		switch s := src.(type) {
		case *handle:
			out = append(out, Entry{Type: s.typ, Name: name, Instance: true})
		case *creatorSource:
			out = append(out, Entry{Type: s.typ, Name: name})
		}
	}
	for _, s := range c.slots {
		add(s.unnamed, "")
		for name, src := range s.named {
			add(src, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type == out[j].Type {
			return out[i].Name < out[j].Name
		}
		return out[i].Type < out[j].Type
	})
	return out
}
