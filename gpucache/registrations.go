package gpucache

import (
	"github.com/gogpu/rescache"
	"github.com/gogpu/rescache/typesig"
)

// Tokens for the built-in GPU resource types. Allocated once at package
// init so every process-wide registry shares the same identities.
var (
	ShaderModuleToken    = rescache.NewToken()
	ComputePipelineToken = rescache.NewToken()
	BindGroupLayoutToken = rescache.NewToken()
	SamplerToken         = rescache.NewToken()
	TextureToken         = rescache.NewToken()
)

// Default capacities. Zero means unbounded; shader modules and pipelines
// are small and long-lived, textures can be large so they get a bound.
const (
	defaultTextureCapacity = 256
)

// RegisterAll registers the built-in GPU resource types with mc. Calling
// it more than once on the same registry is a no-op.
func RegisterAll(mc *rescache.MainCacher) error {
	regs := []rescache.Registration{
		rescache.NewRegistration(ShaderModuleToken, "gpu.shader_module", true,
			shaderModuleKey, createShaderModule),
		rescache.NewRegistration(ComputePipelineToken, "gpu.compute_pipeline", true,
			computePipelineKey, createComputePipeline),
		rescache.NewRegistration(BindGroupLayoutToken, "gpu.bind_group_layout", true,
			bindGroupLayoutKey, createBindGroupLayout),
		rescache.NewRegistration(SamplerToken, "gpu.sampler", true,
			samplerKey, createSampler),
		rescache.NewRegistration(TextureToken, "gpu.texture", true,
			textureKey, createTexture,
			rescache.WithCapacity(defaultTextureCapacity)),
	}
	for _, reg := range regs {
		if err := mc.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBaseTypes marks the built-in resource tokens as acceptable leaf
// types in tr.
func RegisterBaseTypes(tr *typesig.CachedTypeRegistry) {
	tr.RegisterBaseType(ShaderModuleToken)
	tr.RegisterBaseType(ComputePipelineToken)
	tr.RegisterBaseType(BindGroupLayoutToken)
	tr.RegisterBaseType(SamplerToken)
	tr.RegisterBaseType(TextureToken)
}

// ShaderModules returns the shader module cacher for device.
func ShaderModules(mc *rescache.MainCacher, device rescache.Device) (*rescache.Cacher[*ShaderModule, ShaderModuleParams], error) {
	return rescache.GetCacherAs[*ShaderModule, ShaderModuleParams](mc, ShaderModuleToken, device)
}

// ComputePipelines returns the compute pipeline cacher for device.
func ComputePipelines(mc *rescache.MainCacher, device rescache.Device) (*rescache.Cacher[*ComputePipeline, ComputePipelineParams], error) {
	return rescache.GetCacherAs[*ComputePipeline, ComputePipelineParams](mc, ComputePipelineToken, device)
}

// BindGroupLayouts returns the bind group layout cacher for device.
func BindGroupLayouts(mc *rescache.MainCacher, device rescache.Device) (*rescache.Cacher[*BindGroupLayout, BindGroupLayoutParams], error) {
	return rescache.GetCacherAs[*BindGroupLayout, BindGroupLayoutParams](mc, BindGroupLayoutToken, device)
}

// Samplers returns the sampler cacher for device.
func Samplers(mc *rescache.MainCacher, device rescache.Device) (*rescache.Cacher[*Sampler, SamplerParams], error) {
	return rescache.GetCacherAs[*Sampler, SamplerParams](mc, SamplerToken, device)
}

// Textures returns the texture cacher for device.
func Textures(mc *rescache.MainCacher, device rescache.Device) (*rescache.Cacher[*Texture, TextureParams], error) {
	return rescache.GetCacherAs[*Texture, TextureParams](mc, TextureToken, device)
}
