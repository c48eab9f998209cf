package gpucache

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// mockHALDevice is a test double for hal.Device. The embedded interface
// satisfies the methods the factories never touch; calling one of those
// panics on the nil embed, which is the failure we want in a test.
type mockHALDevice struct {
	hal.Device

	createSamplerFunc func(*hal.SamplerDescriptor) (hal.Sampler, error)
	createTextureFunc func(*hal.TextureDescriptor) (hal.Texture, error)

	// Track calls for verification
	samplersCreated    int32
	samplersDestroyed  int32
	texturesCreated    int32
	texturesDestroyed  int32
	shadersCreated     int32
	shadersDestroyed   int32
	pipelinesCreated   int32
	pipelinesDestroyed int32
	layoutsCreated     int32
	layoutsDestroyed   int32

	lastTextureDesc atomic.Pointer[hal.TextureDescriptor]
}

func (d *mockHALDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	atomic.AddInt32(&d.texturesCreated, 1)
	d.lastTextureDesc.Store(desc)
	if d.createTextureFunc != nil {
		return d.createTextureFunc(desc)
	}
	return &mockHALTexture{
		width:  desc.Size.Width,
		height: desc.Size.Height,
		format: desc.Format,
	}, nil
}

func (d *mockHALDevice) DestroyTexture(_ hal.Texture) {
	atomic.AddInt32(&d.texturesDestroyed, 1)
}

func (d *mockHALDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	atomic.AddInt32(&d.samplersCreated, 1)
	if d.createSamplerFunc != nil {
		return d.createSamplerFunc(desc)
	}
	return &mockHALSampler{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroySampler(_ hal.Sampler) {
	atomic.AddInt32(&d.samplersDestroyed, 1)
}

func (d *mockHALDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	atomic.AddInt32(&d.layoutsCreated, 1)
	return &mockHALBindGroupLayout{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyBindGroupLayout(_ hal.BindGroupLayout) {
	atomic.AddInt32(&d.layoutsDestroyed, 1)
}

func (d *mockHALDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	atomic.AddInt32(&d.shadersCreated, 1)
	return &mockHALShaderModule{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyShaderModule(_ hal.ShaderModule) {
	atomic.AddInt32(&d.shadersDestroyed, 1)
}

func (d *mockHALDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	atomic.AddInt32(&d.pipelinesCreated, 1)
	return &mockHALComputePipeline{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyComputePipeline(_ hal.ComputePipeline) {
	atomic.AddInt32(&d.pipelinesDestroyed, 1)
}

func (d *mockHALDevice) Destroy() {}

// mockHALSampler is a test double for hal.Sampler.
type mockHALSampler struct {
	label string
}

func (s *mockHALSampler) Destroy()              {}
func (s *mockHALSampler) NativeHandle() uintptr { return 0 }

// mockHALTexture is a test double for hal.Texture. The usage-tracking
// methods come from the nil embed; the factories never call them.
type mockHALTexture struct {
	hal.Texture

	width  uint32
	height uint32
	format gputypes.TextureFormat
}

func (t *mockHALTexture) Destroy()              {}
func (t *mockHALTexture) NativeHandle() uintptr { return 0 }

// mockHALBindGroupLayout is a test double for hal.BindGroupLayout.
type mockHALBindGroupLayout struct {
	hal.BindGroupLayout

	label string
}

func (l *mockHALBindGroupLayout) Destroy()              {}
func (l *mockHALBindGroupLayout) NativeHandle() uintptr { return 0 }

// mockHALPipelineLayout is a test double for hal.PipelineLayout with a
// distinguishable handle.
type mockHALPipelineLayout struct {
	hal.PipelineLayout

	handle uintptr
}

func (l *mockHALPipelineLayout) Destroy()              {}
func (l *mockHALPipelineLayout) NativeHandle() uintptr { return l.handle }

// mockHALShaderModule is a test double for hal.ShaderModule.
type mockHALShaderModule struct {
	label string
}

func (m *mockHALShaderModule) Destroy()              {}
func (m *mockHALShaderModule) NativeHandle() uintptr { return 0 }

// mockHALComputePipeline is a test double for hal.ComputePipeline.
type mockHALComputePipeline struct {
	label string
}

func (p *mockHALComputePipeline) Destroy()              {}
func (p *mockHALComputePipeline) NativeHandle() uintptr { return 0 }

// newTestDevice wraps a fresh mock HAL device for cacher tests.
func newTestDevice(id uint64) (*HALDevice, *mockHALDevice) {
	mock := &mockHALDevice{}
	return NewHALDevice(id, "mock-device", mock), mock
}
