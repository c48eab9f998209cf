// Package gpucache provides prebuilt cacher registrations for gogpu/wgpu
// HAL resources: shader modules, compute pipelines, bind group layouts,
// samplers and textures.
//
// The factories in this package are the contact point between the caching
// core and the graphics API. Each resource type gets a process-unique
// token, a deterministic parameter keyer and a creation factory that
// drives the HAL device:
//
//	mc := rescache.NewMainCacher()
//	if err := gpucache.RegisterAll(mc); err != nil { ... }
//
//	dev := gpucache.NewHALDevice(1, "discrete-gpu-0", halDevice)
//	shaders, err := gpucache.ShaderModules(mc, dev)
//	module, err := shaders.GetOrCreate(ctx, gpucache.ShaderModuleParams{
//	    Label: "fine_shader",
//	    WGSL:  fineShaderWGSL,
//	})
//
// All five resource types are device-dependent: instances are scoped to
// the device that created them and are destroyed with it via
// MainCacher.RetireDevice.
//
// RegisterAll is idempotent, so every consumer (render-graph node) may
// call it defensively during its setup phase.
package gpucache
