package gpucache

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// ShaderModuleParams describes a shader module to compile and create.
type ShaderModuleParams struct {
	// Label is an optional debug name.
	Label string

	// WGSL is the shader source. It is compiled to SPIR-V with naga.
	WGSL string
}

// shaderModuleKey hashes all fields that affect compilation.
func shaderModuleKey(p ShaderModuleParams) uint64 {
	w := rescache.NewKeyWriter()
	w.WriteString(p.Label)
	w.WriteString(p.WGSL)
	return w.Sum64()
}

// ShaderModule wraps a compiled HAL shader module together with the hash
// of its SPIR-V code, used by dependent pipeline keys.
type ShaderModule struct {
	label    string
	codeHash uint64

	// mu protects mutable state.
	mu        sync.RWMutex
	module    hal.ShaderModule
	device    hal.Device
	destroyed bool
}

// Label returns the module's debug label.
func (m *ShaderModule) Label() string { return m.label }

// CodeHash returns the hash of the compiled SPIR-V code.
func (m *ShaderModule) CodeHash() uint64 { return m.codeHash }

// Raw returns the underlying HAL shader module, or nil after Destroy.
func (m *ShaderModule) Raw() hal.ShaderModule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return nil
	}
	return m.module
}

// IsDestroyed returns true if the module has been destroyed.
func (m *ShaderModule) IsDestroyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}

// Destroy releases the HAL shader module. Called by the owning cacher on
// device teardown.
func (m *ShaderModule) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	if m.module != nil && m.device != nil {
		m.device.DestroyShaderModule(m.module)
	}
	m.module = nil
	m.device = nil
}

// compileWGSL compiles WGSL source to SPIR-V uint32 words.
func compileWGSL(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// createShaderModule is the creation factory for ShaderModuleToken.
func createShaderModule(_ context.Context, dev rescache.Device, p ShaderModuleParams) (*ShaderModule, error) {
	device, err := halDevice(dev)
	if err != nil {
		return nil, err
	}

	spirvCode, err := compileWGSL(p.WGSL)
	if err != nil {
		return nil, err
	}
	rescache.Logger().Debug("shader compiled",
		"label", p.Label, "words", len(spirvCode))

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: p.Label,
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	w := rescache.NewKeyWriter()
	for _, word := range spirvCode {
		w.WriteUint32(word)
	}

	return &ShaderModule{
		label:    p.Label,
		codeHash: w.Sum64(),
		module:   module,
		device:   device,
	}, nil
}
