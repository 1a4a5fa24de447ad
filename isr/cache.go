// Package isr is an incremental static regeneration cache: generated pages
// are kept per key and served stale while a single background rebuild runs.
package isr

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds one background regeneration.
const DefaultRefreshTimeout = 30 * time.Second

// BuildFunc generates the value for key.
type BuildFunc[T any] func(ctx context.Context, key string) (T, error)

// Snapshot is one generated value and when it was produced.
type Snapshot[T any] struct {
	Value     T
	Generated time.Time
}

// Status describes how a Get was served.
type Status int

const (
	// Miss means the value was generated during the request.
	Miss Status = iota
	// Fresh means the snapshot was within its TTL.
	Fresh
	// Stale means the snapshot was past its TTL and a rebuild was scheduled.
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "HIT"
	case Stale:
		return "STALE"
	default:
		return "MISS"
	}
}

type options struct {
	now            func() time.Time
	refreshTimeout time.Duration
	logger         log.FieldLogger
	evict          func(error) bool
}

// Option configures a Cache.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRefreshTimeout overrides DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshTimeout = d
		}
	}
}

// WithLogger sets the logger used for background failures.
func WithLogger(l log.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithEvict marks background errors that remove the entry instead of
// keeping the stale snapshot, e.g. a page whose content was deleted.
func WithEvict(fn func(error) bool) Option {
	return func(o *options) { o.evict = fn }
}

// Cache holds one snapshot per key.
type Cache[T any] struct {
	ttl   time.Duration
	build BuildFunc[T]
	opts  options

	mu       sync.RWMutex
	entries  map[string]Snapshot[T]
	inflight map[string]struct{}

	group singleflight.Group
	wg    sync.WaitGroup
}

// New returns a cache whose snapshots go stale after ttl.
func New[T any](ttl time.Duration, build BuildFunc[T], opts ...Option) *Cache[T] {
	o := options{
		now:            time.Now,
		refreshTimeout: DefaultRefreshTimeout,
		logger:         log.StandardLogger(),
		evict:          func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		ttl:      ttl,
		build:    build,
		opts:     o,
		entries:  make(map[string]Snapshot[T]),
		inflight: make(map[string]struct{}),
	}
}

// TTL is the freshness window of a snapshot.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the snapshot for key. A missing key is generated while the
// caller waits and concurrent callers share that generation. An expired
// snapshot is returned as is and one background rebuild is started.
// Errors from a blocking generation are returned and nothing is cached.
func (c *Cache[T]) Get(ctx context.Context, key string) (Snapshot[T], Status, error) {
	c.mu.RLock()
	snap, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		snap, err := c.generate(ctx, key, true)
		return snap, Miss, err
	}
	if c.opts.now().Sub(snap.Generated) < c.ttl {
		return snap, Fresh, nil
	}
	c.refresh(key)
	return snap, Stale, nil
}

// Peek returns the cached snapshot without generating or refreshing.
func (c *Cache[T]) Peek(key string) (Snapshot[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[key]
	return snap, ok
}

// generate builds key once for all concurrent callers. With reuse set, a
// snapshot stored by a generation that finished in the meantime is returned
// instead of building again. The build is detached from ctx and bounded by
// the refresh timeout, so one caller giving up does not fail the others.
func (c *Cache[T]) generate(ctx context.Context, key string, reuse bool) (Snapshot[T], error) {
	ch := c.group.DoChan(key, func() (any, error) {
		c.wg.Add(1)
		defer c.wg.Done()

		if reuse {
			c.mu.RLock()
			snap, ok := c.entries[key]
			c.mu.RUnlock()
			if ok {
				return snap, nil
			}
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.refreshTimeout)
		defer cancel()
		val, err := c.build(bctx, key)
		if err != nil {
			return Snapshot[T]{}, err
		}
		snap := Snapshot[T]{Value: val, Generated: c.opts.now()}
		c.mu.Lock()
		c.entries[key] = snap
		c.mu.Unlock()
		return snap, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Snapshot[T]{}, res.Err
		}
		return res.Val.(Snapshot[T]), nil
	case <-ctx.Done():
		return Snapshot[T]{}, ctx.Err()
	}
}

// refresh starts a background rebuild of key unless one is already running.
func (c *Cache[T]) refresh(key string) {
	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return
	}
	if snap, ok := c.entries[key]; ok && c.opts.now().Sub(snap.Generated) < c.ttl {
		c.mu.Unlock()
		return
	}
	c.inflight[key] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
		}()

		if _, err := c.generate(context.Background(), key, false); err != nil {
			if c.opts.evict(err) {
				c.Invalidate(key)
				c.opts.logger.Infof("[isr] %s removed: %v", key, err)
				return
			}
			c.opts.logger.Errorf("[isr] regenerate %s failed, serving stale snapshot: %v", key, err)
		}
	}()
}

// Prime generates every key up front. Nothing is stored unless all keys
// build successfully.
func (c *Cache[T]) Prime(ctx context.Context, keys []string) error {
	built := make(map[string]Snapshot[T], len(keys))
	for _, key := range keys {
		val, err := c.build(ctx, key)
		if err != nil {
			return fmt.Errorf("isr: prime %s: %w", key, err)
		}
		built[key] = Snapshot[T]{Value: val, Generated: c.opts.now()}
	}
	c.mu.Lock()
	for k, s := range built {
		c.entries[k] = s
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops key so the next Get generates it again.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of cached keys.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Wait blocks until every background rebuild and detached build has finished.
func (c *Cache[T]) Wait() {
	c.wg.Wait()
}
