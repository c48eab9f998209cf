package gpucache

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// BindGroupLayoutParams describes a bind group layout to create.
type BindGroupLayoutParams struct {
	// Label is an optional debug name.
	Label string

	// Entries declare the bindings, one per slot.
	Entries []gputypes.BindGroupLayoutEntry
}

// bindGroupLayoutKey hashes all fields that affect layout creation,
// including entry order.
func bindGroupLayoutKey(p BindGroupLayoutParams) uint64 {
	w := rescache.NewKeyWriter()
	w.WriteString(p.Label)
	for _, e := range p.Entries {
		w.WriteUint32(e.Binding)
		w.WriteUint32(uint32(e.Visibility))
		w.WriteBool(e.Buffer != nil)
		if e.Buffer != nil {
			w.WriteUint32(uint32(e.Buffer.Type))
			w.WriteUint64(e.Buffer.MinBindingSize)
		}
		w.WriteBool(e.Sampler != nil)
		if e.Sampler != nil {
			w.WriteUint32(uint32(e.Sampler.Type))
		}
		w.WriteBool(e.Texture != nil)
		if e.Texture != nil {
			w.WriteUint32(uint32(e.Texture.SampleType))
			w.WriteUint32(uint32(e.Texture.ViewDimension))
		}
		w.WriteBool(e.StorageTexture != nil)
		if e.StorageTexture != nil {
			w.WriteUint32(uint32(e.StorageTexture.Access))
			w.WriteUint32(uint32(e.StorageTexture.Format))
			w.WriteUint32(uint32(e.StorageTexture.ViewDimension))
		}
	}
	return w.Sum64()
}

// BindGroupLayout wraps a created HAL bind group layout.
type BindGroupLayout struct {
	label string

	// mu protects mutable state.
	mu        sync.RWMutex
	layout    hal.BindGroupLayout
	device    hal.Device
	destroyed bool
}

// Label returns the layout's debug label.
func (l *BindGroupLayout) Label() string { return l.label }

// Raw returns the underlying HAL bind group layout, or nil after Destroy.
func (l *BindGroupLayout) Raw() hal.BindGroupLayout {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.destroyed {
		return nil
	}
	return l.layout
}

// IsDestroyed returns true if the layout has been destroyed.
func (l *BindGroupLayout) IsDestroyed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.destroyed
}

// Destroy releases the HAL bind group layout. Called by the owning cacher
// on device teardown.
func (l *BindGroupLayout) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return
	}
	l.destroyed = true
	if l.layout != nil && l.device != nil {
		l.device.DestroyBindGroupLayout(l.layout)
	}
	l.layout = nil
	l.device = nil
}

// createBindGroupLayout is the creation factory for BindGroupLayoutToken.
func createBindGroupLayout(_ context.Context, dev rescache.Device, p BindGroupLayoutParams) (*BindGroupLayout, error) {
	device, err := halDevice(dev)
	if err != nil {
		return nil, err
	}

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.Label,
		Entries: p.Entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	return &BindGroupLayout{
		label:  p.Label,
		layout: layout,
		device: device,
	}, nil
}
