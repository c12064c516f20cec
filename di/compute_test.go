package di_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/sghaida/beanctx/di"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Failures
// -----------------------------------------------------------------------------

// TestCompute_FactoryErrorConsumesCreator verifies a failed creator is gone
// and the slot can be registered again.
func TestCompute_FactoryErrorConsumesCreator(t *testing.T) {
	t.Parallel()

	c, hook := newTestContext(t)
	var runs atomic.Int32
	require.NoError(t, di.AddCreator(c, "db", func(context.Context, *di.Context) (*service, error) {
		runs.Add(1)
		return nil, errBoom
	}))

	_, err := di.Compute[*service](context.Background(), c, "db")
	require.ErrorIs(t, err, errBoom)

	var fe di.FactoryError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "*di_test.service", fe.Type)
	assert.Equal(t, "db", fe.Name)
	assert.Equal(t, `di: creating *di_test.service named "db": boom`, err.Error())
	assert.Contains(t, messages(hook, logrus.WarnLevel), "creator failed")

	_, err = di.Compute[*service](context.Background(), c, "db")
	require.ErrorIs(t, err, di.ErrNotExist)
	assert.EqualValues(t, 1, runs.Load())

	require.NoError(t, di.AddCreator(c, "db", factoryOf(&service{name: "retry"}, &runs)))
	got, err := di.Compute[*service](context.Background(), c, "db")
	require.NoError(t, err)
	assert.Equal(t, "retry", got.name)
}

// TestCompute_PanicIsRecovered verifies a panicking creator fails like an
// erroring one.
func TestCompute_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	require.NoError(t, di.AddCreator(c, "", func(context.Context, *di.Context) (*service, error) {
		panic("kaboom")
	}))

	_, err := di.Compute[*service](context.Background(), c, "")
	require.ErrorIs(t, err, di.ErrFactoryPanic)
	assert.Contains(t, err.Error(), "kaboom")
	assert.False(t, di.Has[*service](c, ""))
}

// TestCompute_CancelledBeforeStartKeepsCreator verifies a dead ctx is rejected
// before the creator is taken.
func TestCompute_CancelledBeforeStartKeepsCreator(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var runs atomic.Int32
	require.NoError(t, di.AddCreator(c, "", factoryOf(&service{}, &runs)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := di.Compute[*service](ctx, c, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runs.Load())

	_, err = di.Compute[*service](context.Background(), c, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, runs.Load())
}

// TestCompute_UnusableBean verifies a product rejected by its descriptor
// leaves the slot empty.
func TestCompute_UnusableBean(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	d := di.AddReadMethod(di.NewDescriptor(), "announce", Announce{},
		func(context.Context, *service, di.Reader, Announce, struct{}) error { return nil })
	require.NoError(t, di.AddCreator(c, "", factoryOf(&counter{}, new(atomic.Int32)), di.WithDescriptor(d)))

	_, err := di.Compute[*counter](context.Background(), c, "")
	require.ErrorIs(t, err, di.ErrTypeMismatch)

	var fe di.FactoryError
	require.ErrorAs(t, err, &fe)
	assert.False(t, di.Has[*counter](c, ""))
}

// -----------------------------------------------------------------------------
// Cycles
// -----------------------------------------------------------------------------

// TestCompute_SelfCycle verifies a creator asking for its own bean gets a
// CycleError and the outer Compute fails with an empty slot.
func TestCompute_SelfCycle(t *testing.T) {
	t.Parallel()

	c, hook := newTestContext(t)
	var inner error
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*alpha, error) {
		_, inner = di.Compute[*alpha](ctx, c, "")
		if inner != nil {
			return nil, inner
		}
		return &alpha{}, nil
	}))

	_, err := di.Compute[*alpha](context.Background(), c, "")
	require.Error(t, err)
	require.ErrorIs(t, err, di.ErrCycle)
	assert.NotErrorIs(t, err, di.ErrNotExist)

	var ce di.CycleError
	require.ErrorAs(t, inner, &ce)
	assert.Equal(t, []string{"*di_test.alpha", "*di_test.alpha"}, ce.Chain)
	assert.Equal(t, "di: cycle in bean graph: *di_test.alpha -> *di_test.alpha", ce.Error())

	_, err = di.Get[*alpha](c, "")
	require.ErrorIs(t, err, di.ErrNotExist)

	assert.EqualValues(t, 1, metrics.GetOrRegisterCounter("di."+di.StatCycles, c.Metrics()).Count())
	assert.Contains(t, messages(hook, logrus.WarnLevel), "cycle detected")
}

// TestCompute_TransitiveCycle verifies cycles through other creators are
// reported with the full chain.
func TestCompute_TransitiveCycle(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*alpha, error) {
		b, err := di.Compute[*beta](ctx, c, "")
		if err != nil {
			return nil, err
		}
		return &alpha{beta: b}, nil
	}))
	require.NoError(t, di.AddCreator(c, "named", func(ctx context.Context, c *di.Context) (*beta, error) {
		return nil, nil
	}))
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*beta, error) {
		a, err := di.Compute[*alpha](ctx, c, "")
		if err != nil {
			return nil, err
		}
		return &beta{alpha: a}, nil
	}))

	_, err := di.Compute[*alpha](context.Background(), c, "")
	require.ErrorIs(t, err, di.ErrCycle)

	var ce di.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"*di_test.alpha", "*di_test.beta", "*di_test.alpha"}, ce.Chain)

	assert.False(t, di.Has[*alpha](c, ""))
	assert.False(t, di.Has[*beta](c, ""))

	_, err = di.Compute[*beta](context.Background(), c, "named")
	require.NoError(t, err, "unrelated slot of the same type is untouched")
}

// TestCompute_SelfCycleWithoutFactoryCtx verifies a creator that asks for its
// own bean without passing its ctx on still gets a CycleError.
func TestCompute_SelfCycleWithoutFactoryCtx(t *testing.T) {
	t.Parallel()

	var noCtx context.Context
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "background", ctx: context.Background()},
		{name: "nil", ctx: noCtx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestContext(t)
			require.NoError(t, di.AddCreator(c, "", func(_ context.Context, c *di.Context) (*alpha, error) {
				if _, err := di.Compute[*alpha](tt.ctx, c, ""); err != nil {
					return nil, err
				}
				return &alpha{}, nil
			}))

			err := returnsSoon(t, func() error {
				_, err := di.Compute[*alpha](context.Background(), c, "")
				return err
			})
			require.ErrorIs(t, err, di.ErrCycle)

			var ce di.CycleError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, []string{"*di_test.alpha", "*di_test.alpha"}, ce.Chain)
			assert.False(t, di.Has[*alpha](c, ""))
		})
	}
}

// TestCompute_SelfCycleThroughWriteMethod verifies a write method called with
// a nil ctx from a creator cannot wait on that creator.
func TestCompute_SelfCycleThroughWriteMethod(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	d := di.AddWriteMethod(di.NewDescriptor(), "rebuild", register{},
		func(ctx context.Context, _ *counter, c *di.Context, _ register, _ struct{}) error {
			_, err := di.Compute[*alpha](ctx, c, "")
			return err
		})
	require.NoError(t, di.AddInstance(c, "", &counter{}, di.WithDescriptor(d)))

	var noCtx context.Context
	require.NoError(t, di.AddCreator(c, "", func(_ context.Context, c *di.Context) (*alpha, error) {
		for call := range di.Methods[register, struct{}](c) {
			if err := call.Call(noCtx, struct{}{}); err != nil {
				return nil, err
			}
		}
		return &alpha{}, nil
	}))

	err := returnsSoon(t, func() error {
		_, err := di.Compute[*alpha](context.Background(), c, "")
		return err
	})
	require.ErrorIs(t, err, di.ErrCycle)
}

// TestCompute_DiamondIsNotACycle verifies a shared dependency is built once
// and reused.
func TestCompute_DiamondIsNotACycle(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var leafRuns atomic.Int32
	require.NoError(t, di.AddCreator(c, "", factoryOf(&counter{}, &leafRuns)))

	for _, name := range []string{"left", "right"} {
		require.NoError(t, di.AddCreator(c, name, func(ctx context.Context, c *di.Context) (*service, error) {
			if _, err := di.Compute[*counter](ctx, c, ""); err != nil {
				return nil, err
			}
			return &service{name: name}, nil
		}))
	}
	require.NoError(t, di.AddCreator(c, "top", func(ctx context.Context, c *di.Context) (*service, error) {
		for _, dep := range []string{"left", "right"} {
			if _, err := di.Compute[*service](ctx, c, dep); err != nil {
				return nil, err
			}
		}
		return &service{name: "top"}, nil
	}))

	top, err := di.Compute[*service](context.Background(), c, "top")
	require.NoError(t, err)
	assert.Equal(t, "top", top.name)
	assert.EqualValues(t, 1, leafRuns.Load())
}

// TestCompute_NamedSlotOfSameTypeIsNotACycle verifies cycle detection works
// per name, not per type.
func TestCompute_NamedSlotOfSameTypeIsNotACycle(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	require.NoError(t, di.AddCreator(c, "inner", factoryOf(&service{name: "inner"}, new(atomic.Int32))))
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*service, error) {
		inner, err := di.Compute[*service](ctx, c, "inner")
		if err != nil {
			return nil, err
		}
		return &service{name: "outer of " + inner.name}, nil
	}))

	got, err := di.Compute[*service](context.Background(), c, "")
	require.NoError(t, err)
	assert.Equal(t, "outer of inner", got.name)
}

// -----------------------------------------------------------------------------
// Concurrency
// -----------------------------------------------------------------------------

// TestCompute_ConcurrentCallersShareOneConstruction verifies exactly-once
// construction under concurrent demand.
func TestCompute_ConcurrentCallersShareOneConstruction(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, di.AddCreator(c, "", func(context.Context, *di.Context) (*counter, error) {
		runs.Add(1)
		close(started)
		<-release
		return &counter{}, nil
	}))

	const callers = 16
	results := make([]*counter, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = di.Compute[*counter](context.Background(), c, "")
		}()
	}

	<-started
	_, err := di.Get[*counter](c, "")
	require.ErrorIs(t, err, di.ErrNotExist, "in-flight construction is not visible to Get")
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.EqualValues(t, 1, runs.Load())
}

// TestCompute_WaiterHonoursContext verifies a waiter gives up when its own
// ctx ends while the builder carries on.
func TestCompute_WaiterHonoursContext(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, di.AddCreator(c, "", func(context.Context, *di.Context) (*service, error) {
		close(started)
		<-release
		return &service{name: "slow"}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := di.Compute[*service](context.Background(), c, "")
		done <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := di.Compute[*service](ctx, c, "")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, di.Has[*service](c, ""))
}

// TestCompute_CrossGoroutineCycle verifies two creators waiting on each other
// from different goroutines fail with a cycle instead of blocking forever.
func TestCompute_CrossGoroutineCycle(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	alphaStarted := make(chan struct{})
	betaStarted := make(chan struct{})

	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*alpha, error) {
		close(alphaStarted)
		<-betaStarted
		b, err := di.Compute[*beta](ctx, c, "")
		if err != nil {
			return nil, err
		}
		return &alpha{beta: b}, nil
	}))
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*beta, error) {
		close(betaStarted)
		<-alphaStarted
		a, err := di.Compute[*alpha](ctx, c, "")
		if err != nil {
			return nil, err
		}
		return &beta{alpha: a}, nil
	}))

	errs := make(chan error, 2)
	go func() {
		_, err := di.Compute[*alpha](context.Background(), c, "")
		errs <- err
	}()
	go func() {
		_, err := di.Compute[*beta](context.Background(), c, "")
		errs <- err
	}()

	for range 2 {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, di.ErrCycle)
		case <-time.After(5 * time.Second):
			t.Fatal("constructions deadlocked")
		}
	}
}

// TestCompute_FanOutCycle verifies a cycle is found when the creator on it
// waits on more than one dependency at a time.
func TestCompute_FanOutCycle(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	betaStarted := make(chan struct{})
	betaRelease := make(chan struct{})

	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*alpha, error) {
		betaDone := make(chan error, 1)
		go func() {
			_, err := di.Compute[*beta](ctx, c, "")
			betaDone <- err
		}()
		<-betaStarted

		_, err := di.Compute[*service](ctx, c, "")
		close(betaRelease)
		if berr := <-betaDone; berr != nil {
			return nil, berr
		}
		if err != nil {
			return nil, err
		}
		return &alpha{}, nil
	}))
	require.NoError(t, di.AddCreator(c, "", func(context.Context, *di.Context) (*beta, error) {
		close(betaStarted)
		<-betaRelease
		return &beta{}, nil
	}))
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*service, error) {
		if _, err := di.Compute[*alpha](ctx, c, ""); err != nil {
			return nil, err
		}
		return &service{}, nil
	}))

	err := returnsSoon(t, func() error {
		_, err := di.Compute[*alpha](context.Background(), c, "")
		return err
	})
	require.ErrorIs(t, err, di.ErrCycle)

	var ce di.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"*di_test.alpha", "*di_test.service", "*di_test.alpha"}, ce.Chain)
	assert.True(t, di.Has[*beta](c, ""), "the independent dependency is still built")
}

// -----------------------------------------------------------------------------
// ComputeAll
// -----------------------------------------------------------------------------

// TestComputeAll_RegistrationOrder verifies every creator runs, in the order
// it was registered, including creators registered along the way.
func TestComputeAll_RegistrationOrder(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var (
		mu    sync.Mutex
		order []string
	)
	creator := func(name string, then func(c *di.Context) error) di.Factory[*service] {
		return func(_ context.Context, c *di.Context) (*service, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			if then != nil {
				if err := then(c); err != nil {
					return nil, err
				}
			}
			return &service{name: name}, nil
		}
	}

	require.NoError(t, di.AddCreator(c, "1", creator("1", nil)))
	require.NoError(t, di.AddCreator(c, "2", creator("2", func(c *di.Context) error {
		return di.AddCreator(c, "4", creator("4", nil))
	})))
	require.NoError(t, di.AddCreator(c, "3", creator("3", nil)))

	require.NoError(t, c.ComputeAll(context.Background()))
	assert.Equal(t, []string{"1", "2", "3", "4"}, order)

	for _, name := range order {
		got, err := di.Get[*service](c, name)
		require.NoError(t, err)
		assert.Equal(t, name, got.name)
	}
	assert.EqualValues(t, 4, metrics.GetOrRegisterCounter("di."+di.StatCreated, c.Metrics()).Count())
	assert.EqualValues(t, 4, metrics.GetOrRegisterCounter("di."+di.StatLive, c.Metrics()).Count())
}

// TestComputeAll_StopsAtFirstError verifies later creators stay pending.
func TestComputeAll_StopsAtFirstError(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var runs atomic.Int32
	require.NoError(t, di.AddCreator(c, "1", factoryOf(&service{name: "1"}, &runs)))
	require.NoError(t, di.AddCreator(c, "2", func(context.Context, *di.Context) (*service, error) {
		return nil, errBoom
	}))
	require.NoError(t, di.AddCreator(c, "3", factoryOf(&service{name: "3"}, &runs)))

	err := c.ComputeAll(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.EqualValues(t, 1, runs.Load())

	assert.Contains(t, c.Entries(), di.Entry{Type: "*di_test.service", Name: "3", Instance: false})
	assert.EqualValues(t, 1, metrics.GetOrRegisterCounter("di."+di.StatFailed, c.Metrics()).Count())

	require.NoError(t, c.ComputeAll(context.Background()))
	assert.True(t, di.Has[*service](c, "3"))
}

// TestComputeAll_SkipsBeansAlreadyBuilt verifies dependencies built by an
// earlier creator are not built twice.
func TestComputeAll_SkipsBeansAlreadyBuilt(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(t)
	var runs atomic.Int32
	require.NoError(t, di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*service, error) {
		cnt, err := di.Compute[*counter](ctx, c, "")
		if err != nil {
			return nil, err
		}
		cnt.Inc()
		return &service{}, nil
	}))
	require.NoError(t, di.AddCreator(c, "", factoryOf(&counter{}, &runs)))

	require.NoError(t, c.ComputeAll(context.Background()))
	assert.EqualValues(t, 1, runs.Load())
	assert.EqualValues(t, 1, di.MustGet[*counter](c, "").Value())
}

// TestComputeAll_LeavesParentAlone verifies a child's ComputeAll only runs its
// own creators.
func TestComputeAll_LeavesParentAlone(t *testing.T) {
	t.Parallel()

	parent, _ := newTestContext(t)
	var parentRuns, childRuns atomic.Int32
	require.NoError(t, di.AddCreator(parent, "", factoryOf(&service{}, &parentRuns)))

	child := parent.Child()
	require.NoError(t, di.AddCreator(child, "", factoryOf(&counter{}, &childRuns)))

	require.NoError(t, child.ComputeAll(context.Background()))
	assert.EqualValues(t, 1, childRuns.Load())
	assert.Zero(t, parentRuns.Load())
}
