package writepolicy_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/storekit/writepolicy"
)

type fakePersister struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (f *fakePersister) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

func (f *fakePersister) Name() string { return "test" }

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type saveCounter struct {
	mu       sync.Mutex
	ok, fail int
}

func (c *saveCounter) Hit()      {}
func (c *saveCounter) Miss()     {}
func (c *saveCounter) Eviction() {}
func (c *saveCounter) Expire()   {}
func (c *saveCounter) Save(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail++
		return
	}
	c.ok++
}

func TestWriteThroughSavesSynchronously(t *testing.T) {
	p := &fakePersister{}
	w := writepolicy.NewWriteThroughPolicy(p, nil)
	defer w.Close()

	w.OnWrite(context.Background())
	w.OnWrite(context.Background())

	assert.Equal(t, 2, p.count())
}

func TestWriteThroughSwallowsErrors(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	m := &saveCounter{}
	w := writepolicy.NewWriteThroughPolicy(p, m)

	assert.NotPanics(t, func() { w.OnWrite(context.Background()) })
	assert.Equal(t, 1, m.fail)
	assert.Equal(t, 0, m.ok)
}

func TestWriteThroughSavesWithCancelledContext(t *testing.T) {
	p := &fakePersister{}
	w := writepolicy.NewWriteThroughPolicy(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.OnWrite(ctx)

	assert.Equal(t, 1, p.count())
}

func TestWriteBackSavesWithCancelledContext(t *testing.T) {
	p := &fakePersister{}
	w := writepolicy.NewWriteBackPolicy(p, nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.OnWrite(ctx)
	w.Close()

	assert.Equal(t, 1, p.count())
}

func TestWriteBackFlushesOnClose(t *testing.T) {
	p := &fakePersister{}
	w := writepolicy.NewWriteBackPolicy(p, nil, 4)

	for i := 0; i < 100; i++ {
		w.OnWrite(context.Background())
	}
	w.Close()

	// Requests coalesce, but at least one save covers the last write.
	assert.GreaterOrEqual(t, p.count(), 1)
	assert.LessOrEqual(t, p.count(), 100)

	// Writes after Close are ignored, and Close is idempotent.
	w.OnWrite(context.Background())
	w.Close()
}

func TestNew(t *testing.T) {
	p := &fakePersister{}

	w, err := writepolicy.New("", p, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &writepolicy.WriteThroughPolicy{}, w)

	w, err = writepolicy.New(writepolicy.WriteBack, p, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &writepolicy.WriteBackPolicy{}, w)
	w.Close()

	_, err = writepolicy.New("sideways", p, nil, 0)
	assert.Error(t, err)
}
