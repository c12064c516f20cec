package di_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sghaida/beanctx/di"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var errBoom = errors.New("boom")

// newTestContext returns a root context logging into a hook. The context is
// closed when the test ends.
func newTestContext(t *testing.T, opts ...di.Option) (*di.Context, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	c := di.New(append([]di.Option{di.WithLogger(logger)}, opts...)...)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, hook
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// messages returns the messages of all entries logged at level.
func messages(hook *test.Hook, level logrus.Level) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// returnsSoon runs fn and fails the test if it blocks for more than 5s.
func returnsSoon(t *testing.T, fn func() error) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("call blocked")
		return nil
	}
}

// -----------------------------------------------------------------------------
// Beans
// -----------------------------------------------------------------------------

type counter struct {
	n atomic.Int64
}

func (c *counter) Inc() int64   { return c.n.Add(1) }
func (c *counter) Value() int64 { return c.n.Load() }

type service struct {
	name string
}

type alpha struct{ beta *beta }
type beta struct{ alpha *alpha }

// journal records releases in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// resource is an io.Closer writing its name to a journal.
type resource struct {
	name string
	j    *journal
	err  error
}

func (r *resource) Close() error {
	r.j.add(r.name)
	return r.err
}

// factoryOf returns a factory that counts its runs and returns v.
func factoryOf[T any](v T, runs *atomic.Int32) di.Factory[T] {
	return func(context.Context, *di.Context) (T, error) {
		runs.Add(1)
		return v, nil
	}
}
