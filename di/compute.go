package di

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// construction is a creator that is running. Concurrent requests for the same
// slot wait on done and share the outcome.
type construction struct {
	done  chan struct{}
	value any
	err   error

	// waitingOn counts the outstanding waits of this construction: nested
	// Computes on its call chain, including ones started on other goroutines,
	// and waits on constructions owned by other goroutines. Guarded by
	// waitGraph.
	waitingOn map[*construction]int
}

// waitGraph guards every construction.waitingOn across all contexts.
var waitGraph sync.Mutex

// reaches reports whether target can be reached from b by following waits.
// Caller holds waitGraph.
func (b *construction) reaches(target *construction) bool {
	seen := make(map[*construction]bool)
	stack := []*construction{b}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for next := range cur.waitingOn {
			stack = append(stack, next)
		}
	}
	return false
}

// link records that from waits on to and returns the func undoing it.
// Caller holds waitGraph.
func link(from, to *construction) func() {
	if from.waitingOn == nil {
		from.waitingOn = make(map[*construction]int)
	}
	from.waitingOn[to]++
	return func() {
		waitGraph.Lock()
		defer waitGraph.Unlock()
		if from.waitingOn[to]--; from.waitingOn[to] <= 0 {
			delete(from.waitingOn, to)
		}
	}
}

func (b *construction) finished() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *construction) wait(ctx context.Context) (any, error) {
	select {
	case <-b.done:
		return b.value, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// frame is one construction on the call chain carried by a context.Context
// and by the *Context view handed to its creator.
type frame struct {
	ref   slotRef
	typ   string
	build *construction
	prev  *frame
}

type frameKey struct{}

func frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// chainOf returns the construction a request made with ctx through c belongs
// to: the one carried by ctx, else the one c was handed to while that one is
// still running.
func (c *Context) chainOf(ctx context.Context) *frame {
	if f := frameFrom(ctx); f != nil {
		return f
	}
	if c.frame == nil || c.frame.build.finished() {
		return nil
	}
	return c.frame
}

func label(ref slotRef, typ string) string {
	if ref.name == "" {
		return typ
	}
	return typ + "[" + strconv.Quote(ref.name) + "]"
}

// chain lists the frames from the outermost construction inwards, then next.
func (f *frame) chain(next string) []string {
	var out []string
	for cur := f; cur != nil; cur = cur.prev {
		out = append(out, label(cur.ref, cur.typ))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return append(out, next)
}

// -----------------------------------------------------------------------------
// Compute
// -----------------------------------------------------------------------------

// Compute returns the instance at (T, name), running the slot's creator first
// if it has not run yet. The creator is removed from the slot before it runs:
// whatever happens it never runs again, and a failure leaves the slot empty.
//
// When c has no such slot the lookup falls back to the ancestors, read-only:
// a parent's pending creator is never run on behalf of a child.
//
// A creator that asks for its own slot, directly or through other creators,
// gets a CycleError. A request for a slot that another goroutine is building
// waits for that construction or for ctx to end. A nil ctx is treated as
// context.Background.
func Compute[T any](ctx context.Context, c *Context, name string) (T, error) {
	v, err := c.compute(ctx, slotRef{key: KeyOf[T](), name: name}, typeName[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return valueAs[T](v)
}

func (c *Context) compute(ctx context.Context, ref slotRef, typ string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	v, found, err := c.computeLocal(ctx, ref, typ)
	if found || err != nil {
		return v, err
	}
	if c.parent == nil {
		return nil, NotExistError{Type: typ, Name: ref.name}
	}
	return c.parent.lookup(ref, typ)
}

// computeLocal reports found=false only when ref is unknown to c.
func (c *Context) computeLocal(ctx context.Context, ref slotRef, typ string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrClosed
	}
	if b, ok := c.building[ref]; ok {
		c.mu.Unlock()
		v, err := c.await(ctx, ref, typ, b)
		return v, true, err
	}

	switch src := c.sourceAt(ref).(type) {
	case *handle:
		c.mu.Unlock()
		return src.value, true, nil
	case *creatorSource:
		c.slots[ref.key].remove(ref.name)
		b := &construction{done: make(chan struct{})}
		c.building[ref] = b
		c.mu.Unlock()
		v, err := c.construct(ctx, ref, src, b)
		return v, true, err
	}
	c.mu.Unlock()
	return nil, false, nil
}

// await blocks on a construction in flight. If that construction is
// (transitively) waiting for the caller's own construction, waiting would
// never end and a CycleError is returned instead.
func (c *Context) await(ctx context.Context, ref slotRef, typ string, b *construction) (any, error) {
	if top := c.chainOf(ctx); top != nil {
		waitGraph.Lock()
		if b.reaches(top.build) {
			waitGraph.Unlock()
			return nil, c.cycle(top, ref, typ)
		}
		unlink := link(top.build, b)
		waitGraph.Unlock()
		defer unlink()
	}
	return b.wait(ctx)
}

func (c *Context) cycle(top *frame, ref slotRef, typ string) error {
	err := CycleError{Chain: top.chain(label(ref, typ))}
	c.stats.cycles.Inc(1)
	c.entry(ref, typ).WithField("chain", err.Chain).Warn("cycle detected")
	return err
}

// construct runs src and stores its product at ref. b is published to waiters
// when construct returns.
func (c *Context) construct(ctx context.Context, ref slotRef, src *creatorSource, b *construction) (v any, err error) {
	log := c.entry(ref, src.typ)
	start := time.Now()

	parent := c.chainOf(ctx)
	if parent != nil {
		waitGraph.Lock()
		unlink := link(parent.build, b)
		waitGraph.Unlock()
		defer unlink()
	}

	defer func() {
		c.stats.create.UpdateSince(start)
		c.mu.Lock()
		if c.building[ref] == b {
			delete(c.building, ref)
		}
		c.mu.Unlock()
		b.value, b.err = v, err
		close(b.done)
	}()

	f := &frame{ref: ref, typ: src.typ, build: b, prev: parent}
	value, err := invoke(context.WithValue(ctx, frameKey{}, f), c.within(f), src)
	if err != nil {
		c.stats.failed.Inc(1)
		log.WithError(err).Warn("creator failed")
		return nil, FactoryError{Type: src.typ, Name: ref.name, Err: err}
	}

	h, err := newHandle(ref, src.typ, value, src.cfg)
	if err != nil {
		c.stats.failed.Inc(1)
		log.WithError(err).Warn("creator produced an unusable bean")
		return nil, FactoryError{Type: src.typ, Name: ref.name, Err: err}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if cerr := h.close(); cerr != nil {
			log.WithError(cerr).Warn("release after close failed")
		}
		return nil, ErrClosed
	}
	delete(c.building, ref)
	c.store(c.slotFor(ref.key), h)
	c.mu.Unlock()

	c.stats.created.Inc(1)
	log.WithField("elapsed", time.Since(start)).Debug("bean constructed")
	return value, nil
}

func invoke(ctx context.Context, c *Context, src *creatorSource) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrFactoryPanic, "%v", r)
		}
	}()
	return src.run(ctx, c)
}

// -----------------------------------------------------------------------------
// ComputeAll
// -----------------------------------------------------------------------------

// ComputeAll runs every pending creator of c in registration order and stops
// at the first failure. Creators registered while it runs are run as well.
// Ancestors are not touched.
func (c *Context) ComputeAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		batch, err := c.pendingCreators()
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		c.log.WithField("count", len(batch)).Debug("computing pending creators")
		for _, p := range batch {
			if _, _, err := c.computeLocal(ctx, p.ref, p.typ); err != nil {
				return err
			}
		}
	}
}

// pendingCreators drops stale entries from c.pending and returns a copy of
// the remaining ones.
func (c *Context) pendingCreators() ([]pendingCreator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	seen := make(map[slotRef]bool, len(c.pending))
	kept := c.pending[:0]
	for _, p := range c.pending {
		if seen[p.ref] {
			continue
		}
		if _, ok := c.sourceAt(p.ref).(*creatorSource); !ok {
			continue
		}
		seen[p.ref] = true
		kept = append(kept, p)
	}
	c.pending = kept
	return append([]pendingCreator(nil), kept...), nil
}
