// Package rescache provides the resource-caching core for GPU rendering
// engines: a generic, type-indexed get-or-create cache that maps creation
// parameters to previously built GPU resources (pipelines, shader modules,
// samplers, textures), scoped per physical device.
//
// # Overview
//
// Creating GPU resources is expensive because it involves shader
// compilation, driver validation and allocation. rescache stores every
// created resource under a deterministic hash of its creation parameters
// and guarantees at-most-one creation per unique key, even under
// concurrent access.
//
// The core pieces are:
//   - Cacher: a generic get-or-create store keyed by a hash of
//     creation parameters.
//   - MainCacher: the single entry point that registers resource types
//     and routes retrieval to either a per-device registry or a
//     process-wide instance.
//   - Device: a handle identifying a physical device; device-dependent
//     cachers live and die with their device.
//
// Composite-type validation (is vector<pair<Image,Sampler>> legal to
// cache?) lives in the typesig subpackage. Prebuilt registrations for
// gogpu/wgpu HAL resources live in the gpucache subpackage, and cache
// manifests in persist.
//
// # Quick Start
//
//	mc := rescache.NewMainCacher()
//
//	// One-time setup phase: register the resource type.
//	tok := rescache.NewToken()
//	reg := rescache.NewRegistration(tok, "ShaderModule", true, keyer, factory)
//	if err := mc.Register(reg); err != nil { ... }
//
//	// Execution phase, potentially every frame:
//	c, err := rescache.GetCacherAs[*ShaderModule, ShaderParams](mc, tok, dev)
//	module, err := c.GetOrCreate(ctx, params)
//
// Registration is defensive by design: registering the same descriptor
// twice is a no-op, so independent consumers (render-graph nodes) may all
// register the types they need without coordination. A repeat
// registration with a different name or dependence flag fails with a
// conflict error.
//
// # Concurrency
//
// All types are safe for concurrent use. Lookups take read locks only;
// creation for a given key is serialized so that concurrent callers of
// GetOrCreate with equal parameters observe a single factory invocation
// and share its result. Cachers for different devices never contend on
// the same lock.
//
// # Lifetime
//
// Entries have no expiry: they live until their owning cacher is
// destroyed, either with the process (device-independent) or with its
// device via MainCacher.RetireDevice. An optional LRU capacity bound is
// available through WithCapacity.
package rescache

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
