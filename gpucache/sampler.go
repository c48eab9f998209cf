package gpucache

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// SamplerParams describes a texture sampler to create. The zero value is
// a nearest-filtered, repeat-addressed sampler.
type SamplerParams struct {
	// Label is an optional debug name.
	Label string

	// AddressModeU, AddressModeV and AddressModeW control wrapping per
	// texture axis.
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode

	// MagFilter and MinFilter control magnification and minification
	// filtering.
	MagFilter gputypes.FilterMode
	MinFilter gputypes.FilterMode

	// MipmapFilter controls filtering between mip levels.
	MipmapFilter gputypes.FilterMode
}

// samplerKey hashes all fields that affect sampler creation.
func samplerKey(p SamplerParams) uint64 {
	w := rescache.NewKeyWriter()
	w.WriteString(p.Label)
	w.WriteUint32(uint32(p.AddressModeU))
	w.WriteUint32(uint32(p.AddressModeV))
	w.WriteUint32(uint32(p.AddressModeW))
	w.WriteUint32(uint32(p.MagFilter))
	w.WriteUint32(uint32(p.MinFilter))
	w.WriteUint32(uint32(p.MipmapFilter))
	return w.Sum64()
}

// Sampler wraps a created HAL sampler.
type Sampler struct {
	label string

	// mu protects mutable state.
	mu        sync.RWMutex
	sampler   hal.Sampler
	device    hal.Device
	destroyed bool
}

// Label returns the sampler's debug label.
func (s *Sampler) Label() string { return s.label }

// Raw returns the underlying HAL sampler, or nil after Destroy.
func (s *Sampler) Raw() hal.Sampler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return nil
	}
	return s.sampler
}

// IsDestroyed returns true if the sampler has been destroyed.
func (s *Sampler) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// Destroy releases the HAL sampler. Called by the owning cacher on device
// teardown.
func (s *Sampler) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.sampler != nil && s.device != nil {
		s.device.DestroySampler(s.sampler)
	}
	s.sampler = nil
	s.device = nil
}

// createSampler is the creation factory for SamplerToken.
func createSampler(_ context.Context, dev rescache.Device, p SamplerParams) (*Sampler, error) {
	device, err := halDevice(dev)
	if err != nil {
		return nil, err
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        p.Label,
		AddressModeU: p.AddressModeU,
		AddressModeV: p.AddressModeV,
		AddressModeW: p.AddressModeW,
		MagFilter:    p.MagFilter,
		MinFilter:    p.MinFilter,
		MipmapFilter: p.MipmapFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	return &Sampler{
		label:   p.Label,
		sampler: sampler,
		device:  device,
	}, nil
}
