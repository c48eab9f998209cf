package gpucache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// Pipeline errors.
var (
	// ErrNilShaderModule is returned when creating a pipeline without a
	// shader module.
	ErrNilShaderModule = errors.New("gpucache: shader module is nil")

	// ErrShaderModuleDestroyed is returned when the referenced shader
	// module was destroyed before pipeline creation.
	ErrShaderModuleDestroyed = errors.New("gpucache: shader module has been destroyed")
)

// ComputePipelineParams describes a compute pipeline to create.
//
// Pipelines reference a cached *ShaderModule; obtain it from the shader
// module cacher first. The pipeline key derives from the module's code
// hash, so recompiled shaders yield distinct pipelines.
type ComputePipelineParams struct {
	// Label is an optional debug name.
	Label string

	// Shader is the compute shader module.
	Shader *ShaderModule

	// EntryPoint is the compute entry function. Defaults to "main".
	EntryPoint string

	// Layout is an optional explicit pipeline layout. Layouts are keyed
	// by native handle, so two layouts with the same handle are the same
	// layout as far as the cache is concerned.
	Layout hal.PipelineLayout
}

// computePipelineKey hashes all fields that affect pipeline creation.
func computePipelineKey(p ComputePipelineParams) uint64 {
	w := rescache.NewKeyWriter()
	w.WriteString(p.Label)
	if p.Shader != nil {
		w.WriteUint64(p.Shader.CodeHash())
	} else {
		w.WriteUint64(0)
	}
	w.WriteString(p.EntryPoint)
	w.WriteBool(p.Layout != nil)
	if p.Layout != nil {
		w.WriteUint64(uint64(p.Layout.(hal.NativeHandle).NativeHandle()))
	}
	return w.Sum64()
}

// ComputePipeline wraps a created HAL compute pipeline.
type ComputePipeline struct {
	label string

	// mu protects mutable state.
	mu        sync.RWMutex
	pipeline  hal.ComputePipeline
	device    hal.Device
	destroyed bool
}

// Label returns the pipeline's debug label.
func (p *ComputePipeline) Label() string { return p.label }

// Raw returns the underlying HAL compute pipeline, or nil after Destroy.
func (p *ComputePipeline) Raw() hal.ComputePipeline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.destroyed {
		return nil
	}
	return p.pipeline
}

// IsDestroyed returns true if the pipeline has been destroyed.
func (p *ComputePipeline) IsDestroyed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.destroyed
}

// Destroy releases the HAL pipeline. Called by the owning cacher on
// device teardown.
func (p *ComputePipeline) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true
	if p.pipeline != nil && p.device != nil {
		p.device.DestroyComputePipeline(p.pipeline)
	}
	p.pipeline = nil
	p.device = nil
}

// createComputePipeline is the creation factory for ComputePipelineToken.
func createComputePipeline(_ context.Context, dev rescache.Device, p ComputePipelineParams) (*ComputePipeline, error) {
	device, err := halDevice(dev)
	if err != nil {
		return nil, err
	}
	if p.Shader == nil {
		return nil, ErrNilShaderModule
	}
	module := p.Shader.Raw()
	if module == nil {
		return nil, ErrShaderModuleDestroyed
	}

	entryPoint := p.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  p.Label,
		Layout: p.Layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}

	return &ComputePipeline{
		label:    p.Label,
		pipeline: pipeline,
		device:   device,
	}, nil
}
