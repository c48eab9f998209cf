package rescache

// CacherOption configures a Cacher during creation.
//
// Example:
//
//	// Default: unbounded, entries released via the Destroyer interface.
//	c := rescache.NewCacher("textures", dev, keyer, factory)
//
//	// Bounded with a custom release hook:
//	c := rescache.NewCacher("textures", dev, keyer, factory,
//	    rescache.WithCapacity(256),
//	    rescache.WithReleaseFunc(func(r any) { pool.Put(r) }),
//	)
type CacherOption func(*cacherOptions)

// cacherOptions holds optional configuration for Cacher creation.
type cacherOptions struct {
	capacity int
	release  func(resource any)
}

// defaultCacherOptions returns the default cacher options.
func defaultCacherOptions() cacherOptions {
	return cacherOptions{
		capacity: 0, // unbounded
		release:  destroyerRelease,
	}
}

// WithCapacity bounds the number of live entries. Entries beyond the
// bound are evicted least-recently-used first; eviction drops the entry
// without releasing the resource. Zero or negative restores the default
// unbounded behavior.
func WithCapacity(n int) CacherOption {
	return func(o *cacherOptions) {
		o.capacity = n
	}
}

// WithReleaseFunc sets the hook invoked for each cached resource when the
// cacher is destroyed. The default hook calls Destroy on resources
// implementing Destroyer and ignores everything else.
func WithReleaseFunc(f func(resource any)) CacherOption {
	return func(o *cacherOptions) {
		if f == nil {
			f = destroyerRelease
		}
		o.release = f
	}
}

// destroyerRelease is the default release hook.
func destroyerRelease(v any) {
	if d, ok := v.(Destroyer); ok {
		d.Destroy()
	}
}
