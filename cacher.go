package rescache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Factory produces a resource from creation parameters. It is the only
// contact point with the underlying graphics/compute API. For
// device-dependent types, device is the device the cacher is scoped to;
// for device-independent types it is nil.
//
// The factory is invoked at most once per unique key at a time; a failed
// invocation leaves the key unpopulated, so a later call may retry.
type Factory[R, P any] func(ctx context.Context, device Device, params P) (R, error)

// Destroyer is implemented by resource wrappers that hold releasable
// handles. The default release hook calls Destroy on such values when the
// cacher is destroyed; eviction never does.
type Destroyer interface {
	Destroy()
}

// Instance is the type-erased view of a Cacher held by MainCacher and the
// per-device registries. Concrete access goes through GetCacherAs.
type Instance interface {
	// Name returns the registered display name.
	Name() string

	// Len returns the number of live entries.
	Len() int

	// Stats returns hit/miss/creation counters.
	Stats() Stats

	// Destroy waits for in-flight creations, releases all entries and
	// permanently disables the instance.
	Destroy()
}

// Stats holds cacher counters. Read atomically; values may not be
// perfectly synchronized with each other.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Creations uint64
	Evictions uint64
}

// HitRate returns the hit rate from 0.0 to 1.0, or 0.0 with no requests.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// Cacher is the generic get-or-create engine: a keyed store from a
// deterministic hash of creation parameters to a created resource,
// guaranteeing single creation per unique key.
//
// Thread safety: Cacher is safe for concurrent use. Lookups take a read
// lock; creation is collapsed per key so concurrent GetOrCreate calls
// with equal parameters share one factory invocation.
//
// Lifetime of a key: Absent -> Creating -> Present. Creating falls back
// to Absent when the factory fails, and Present is terminal until the
// cacher is destroyed (or the entry is evicted under a capacity bound).
type Cacher[R, P any] struct {
	name     string
	device   Device // nil for process-wide cachers
	capacity int    // <= 0 means unbounded
	release  func(resource any)
	keyer    Keyer[P]
	factory  Factory[R, P]

	// mu protects entries and lru.
	mu      sync.RWMutex
	entries map[uint64]*cacheEntry[R]
	lru     *lruList[uint64]

	// group collapses concurrent creations per key.
	group singleflight.Group

	// inflight tracks running factory invocations so Destroy can wait
	// for creations scoped to a retiring device.
	inflight  sync.WaitGroup
	destroyed atomic.Bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	creations atomic.Uint64
	evictions atomic.Uint64
}

// cacheEntry holds a created resource with its LRU node (bounded cachers
// only; node is nil when the cacher is unbounded).
type cacheEntry[R any] struct {
	value R
	node  *lruNode[uint64]
}

// NewCacher creates a get-or-create cacher. By default the store is
// unbounded and entries live for the cacher's lifetime; see WithCapacity
// and WithReleaseFunc.
//
// device scopes the cacher to a physical device and is handed to the
// factory on every creation; pass nil for process-wide cachers.
func NewCacher[R, P any](name string, device Device, keyer Keyer[P], factory Factory[R, P], opts ...CacherOption) *Cacher[R, P] {
	o := defaultCacherOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 0 {
		o.capacity = 0
	}

	c := &Cacher[R, P]{
		name:     name,
		device:   device,
		capacity: o.capacity,
		release:  o.release,
		keyer:    keyer,
		factory:  factory,
		entries:  make(map[uint64]*cacheEntry[R]),
	}
	if c.capacity > 0 {
		c.lru = newLRUList[uint64]()
	}
	return c
}

// Name returns the cacher's display name.
func (c *Cacher[R, P]) Name() string { return c.name }

// Device returns the device the cacher is scoped to, or nil for
// process-wide cachers.
func (c *Cacher[R, P]) Device() Device { return c.device }

// Len returns the number of live entries.
func (c *Cacher[R, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the entry bound, or 0 when unbounded.
func (c *Cacher[R, P]) Capacity() int { return c.capacity }

// Stats returns current cacher statistics.
func (c *Cacher[R, P]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Creations: c.creations.Load(),
		Evictions: c.evictions.Load(),
	}
}

// GetOrCreate returns the resource for params, creating it with the
// factory if no live entry exists for the derived key.
//
// Concurrency guarantee: when multiple callers request the same key while
// no entry exists, exactly one factory invocation happens; the others wait
// for it and receive the same result.
//
// The factory runs under the initiating caller's ctx. A waiting caller
// whose ctx expires receives its ctx error wrapped in a *CreationError
// while the creation keeps running for the remaining waiters; the stored
// result serves later calls. Cancelling the initiating ctx may fail the
// creation itself, which leaves the key absent and retryable.
func (c *Cacher[R, P]) GetOrCreate(ctx context.Context, params P) (R, error) {
	var zero R
	if c.destroyed.Load() {
		return zero, fmt.Errorf("%w: %s", ErrCacherDestroyed, c.name)
	}

	key := c.keyer(params)

	// Fast path: read lock.
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		c.touch(key)
		return e.value, nil
	}

	// Slow path: collapse concurrent creations for this key.
	ch := c.group.DoChan(strconv.FormatUint(key, 16), func() (any, error) {
		return c.create(ctx, key, params)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(R), nil
	case <-ctx.Done():
		return zero, &CreationError{Cacher: c.name, Key: key, Err: ctx.Err()}
	}
}

// Get returns the resource for params without creating it. Get is a
// peek: it refreshes recency on bounded cachers but does not count
// toward the hit/miss statistics, which track GetOrCreate only.
func (c *Cacher[R, P]) Get(params P) (R, bool) {
	key := c.keyer(params)
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero R
		return zero, false
	}
	c.touch(key)
	return e.value, true
}

// create runs inside the singleflight group: at most one execution per
// key at a time.
func (c *Cacher[R, P]) create(ctx context.Context, key uint64, params P) (any, error) {
	// Join the in-flight set under mu so the Add cannot race the Wait in
	// Destroy: once Destroy holds mu with destroyed set, every later call
	// lands in the error branch instead.
	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCacherDestroyed, c.name)
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	// Double-check: an earlier flight may have stored the entry between
	// our read-lock miss and joining the group.
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return e.value, nil
	}

	c.misses.Add(1)
	Logger().Debug("cache miss", "cacher", c.name, "key", key)

	value, err := c.factory(ctx, c.device, params)
	if err != nil {
		// The key stays unpopulated; a later call may retry.
		return nil, &CreationError{Cacher: c.name, Key: key, Err: err}
	}

	c.store(key, value)
	c.creations.Add(1)
	return value, nil
}

// store inserts a created entry, evicting oldest entries when bounded.
func (c *Cacher[R, P]) store(key uint64, value R) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry[R]{value: value}
	if c.lru != nil {
		// Eviction drops the entry without destroying the resource;
		// callers holding the handle keep a valid reference. Destroy
		// releases resources.
		for c.lru.Len() >= c.capacity {
			oldest, ok := c.lru.RemoveOldest()
			if !ok {
				break
			}
			delete(c.entries, oldest)
			c.evictions.Add(1)
		}
		entry.node = c.lru.PushFront(key)
	}
	c.entries[key] = entry
}

// touch updates recency for bounded cachers. Unbounded cachers skip the
// write lock entirely.
func (c *Cacher[R, P]) touch(key uint64) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	// Re-check under the write lock; the entry may have been evicted.
	if e, ok := c.entries[key]; ok {
		c.lru.MoveToFront(e.node)
	}
	c.mu.Unlock()
}

// Destroy permanently disables the cacher: it waits for in-flight
// creations to finish, then releases every entry through the release hook
// (by default calling Destroy on resources that implement Destroyer) and
// drops the store. Subsequent GetOrCreate calls fail with
// ErrCacherDestroyed.
//
// Destroy is idempotent.
func (c *Cacher[R, P]) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}

	// Freeze the in-flight set: create only Adds while holding mu, so
	// after this barrier any creation that got in has already Added and
	// anything later sees destroyed.
	c.mu.Lock()
	c.mu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	// Device teardown ordering: never release resources mid-creation.
	c.inflight.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.release(e.value)
	}
	c.entries = make(map[uint64]*cacheEntry[R])
	if c.lru != nil {
		c.lru.Clear()
	}
	Logger().Info("cacher destroyed", "cacher", c.name)
}
