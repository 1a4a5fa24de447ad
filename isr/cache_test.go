package isr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errGone = errors.New("gone")

func quietLogger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

// pageBuilder renders "key#N" where N counts generations.
type pageBuilder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *pageBuilder) build(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return []byte(fmt.Sprintf("%s#%d", key, b.calls)), nil
}

func (b *pageBuilder) setErr(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func (b *pageBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestGetWithinTTLIsByteIdentical(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	b := &pageBuilder{}
	logger, _ := quietLogger()
	c := New[[]byte](60*time.Second, b.build, WithClock(clock.Now), WithLogger(logger))

	first, status, err := c.Get(context.Background(), "my-first-test-post")
	require.NoError(t, err)
	assert.Equal(t, Miss, status)

	clock.Advance(10 * time.Second)
	second, status, err := c.Get(context.Background(), "my-first-test-post")
	require.NoError(t, err)
	assert.Equal(t, Fresh, status)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Generated, second.Generated)
	assert.Equal(t, 1, b.count())
	c.Wait()
}

func TestGetAfterTTLServesStaleAndRegeneratesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	release := make(chan struct{})
	var calls atomic.Int32
	build := func(ctx context.Context, key string) (string, error) {
		n := calls.Add(1)
		if n > 1 {
			<-release
		}
		return fmt.Sprintf("v%d", n), nil
	}
	logger, _ := quietLogger()
	c := New[string](60*time.Second, build, WithClock(clock.Now), WithLogger(logger))

	_, _, err := c.Get(context.Background(), "p")
	require.NoError(t, err)

	clock.Advance(61 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, status, err := c.Get(context.Background(), "p")
			assert.NoError(t, err)
			assert.Equal(t, Stale, status)
			assert.Equal(t, "v1", snap.Value)
		}()
	}
	wg.Wait()

	close(release)
	c.Wait()

	assert.EqualValues(t, 2, calls.Load(), "exactly one background regeneration")

	snap, status, err := c.Get(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, Fresh, status)
	assert.Equal(t, "v2", snap.Value)
	assert.Equal(t, clock.Now(), snap.Generated)
}

func TestConcurrentMissesShareOneGeneration(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	build := func(ctx context.Context, key string) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 42, nil
	}
	c := New[int](time.Minute, build)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, _, err := c.Get(context.Background(), "k")
			assert.NoError(t, err)
			assert.Equal(t, 42, snap.Value)
		}()
	}
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCanceledCallerDoesNotFailSharedGeneration(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var buildErr atomic.Value
	var calls atomic.Int32
	build := func(ctx context.Context, key string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			buildErr.Store(err)
			return "", err
		}
		return "page", nil
	}
	c := New[string](time.Minute, build)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, _, err := c.Get(leaderCtx, "new-post")
		leaderDone <- err
	}()
	<-started

	followerDone := make(chan Snapshot[string], 1)
	go func() {
		snap, status, err := c.Get(context.Background(), "new-post")
		assert.NoError(t, err)
		assert.Equal(t, Miss, status)
		followerDone <- snap
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderDone, context.Canceled)

	close(release)
	snap := <-followerDone
	assert.Equal(t, "page", snap.Value)
	c.Wait()

	assert.Nil(t, buildErr.Load(), "build context must outlive the first caller")
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestMissErrorIsNotCached(t *testing.T) {
	b := &pageBuilder{}
	b.setErr(errGone)
	c := New[[]byte](time.Minute, b.build)

	_, _, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errGone)
	assert.Equal(t, 0, c.Len())

	b.setErr(nil)
	snap, status, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, Miss, status)
	assert.Equal(t, "missing#2", string(snap.Value))
}

func TestBackgroundFailureKeepsStaleSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	b := &pageBuilder{}
	logger, hook := quietLogger()
	c := New[[]byte](time.Minute, b.build, WithClock(clock.Now), WithLogger(logger))

	_, _, err := c.Get(context.Background(), "p")
	require.NoError(t, err)

	b.setErr(errors.New("upstream timeout"))
	clock.Advance(2 * time.Minute)
	snap, status, err := c.Get(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, Stale, status)
	c.Wait()

	kept, ok := c.Peek("p")
	require.True(t, ok)
	assert.Equal(t, snap, kept)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestBackgroundEvictRemovesEntry(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	b := &pageBuilder{}
	logger, _ := quietLogger()
	c := New[[]byte](time.Minute, b.build,
		WithClock(clock.Now),
		WithLogger(logger),
		WithEvict(func(err error) bool { return errors.Is(err, errGone) }),
	)

	_, _, err := c.Get(context.Background(), "p")
	require.NoError(t, err)

	b.setErr(errGone)
	clock.Advance(2 * time.Minute)
	_, status, err := c.Get(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, Stale, status)
	c.Wait()

	_, ok := c.Peek("p")
	assert.False(t, ok)
}

func TestPrimeIsAllOrNothing(t *testing.T) {
	build := func(ctx context.Context, key string) (string, error) {
		if key == "bad" {
			return "", errGone
		}
		return "page:" + key, nil
	}
	c := New[string](time.Minute, build)

	err := c.Prime(context.Background(), []string{"a", "bad", "b"})
	assert.ErrorIs(t, err, errGone)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Prime(context.Background(), []string{"a", "b"}))
	assert.Equal(t, 2, c.Len())

	snap, status, err := c.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, Fresh, status)
	assert.Equal(t, "page:b", snap.Value)
}

func TestInvalidate(t *testing.T) {
	b := &pageBuilder{}
	c := New[[]byte](time.Hour, b.build)

	_, _, _ = c.Get(context.Background(), "p")
	c.Invalidate("p")
	snap, status, err := c.Get(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, Miss, status)
	assert.Equal(t, "p#2", string(snap.Value))
}
