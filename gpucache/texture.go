package gpucache

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// TextureParams describes a texture to create. Width and Height are
// required; MipLevelCount, SampleCount and DepthOrArrayLayers default
// to 1 when zero.
type TextureParams struct {
	// Label is an optional debug name.
	Label string

	// Width and Height are the texture dimensions in texels.
	Width  uint32
	Height uint32

	// DepthOrArrayLayers is the depth or array layer count. Zero means 1.
	DepthOrArrayLayers uint32

	// MipLevelCount is the number of mip levels. Zero means 1.
	MipLevelCount uint32

	// SampleCount is the MSAA sample count. Zero means 1.
	SampleCount uint32

	// Dimension is the texture dimension (1D, 2D, 3D).
	Dimension gputypes.TextureDimension

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage is the allowed usage mask.
	Usage gputypes.TextureUsage
}

// textureKey hashes all fields that affect texture creation. Defaulted
// fields are normalized first so equivalent params share a key.
func textureKey(p TextureParams) uint64 {
	w := rescache.NewKeyWriter()
	w.WriteString(p.Label)
	w.WriteUint32(p.Width)
	w.WriteUint32(p.Height)
	w.WriteUint32(defaultOne(p.DepthOrArrayLayers))
	w.WriteUint32(defaultOne(p.MipLevelCount))
	w.WriteUint32(defaultOne(p.SampleCount))
	w.WriteUint32(uint32(p.Dimension))
	w.WriteUint32(uint32(p.Format))
	w.WriteUint32(uint32(p.Usage))
	return w.Sum64()
}

func defaultOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

// Texture wraps a created HAL texture.
type Texture struct {
	label  string
	width  uint32
	height uint32
	format gputypes.TextureFormat

	// mu protects mutable state.
	mu        sync.RWMutex
	texture   hal.Texture
	device    hal.Device
	destroyed bool
}

// Label returns the texture's debug label.
func (t *Texture) Label() string { return t.label }

// Width returns the texture width in texels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the texture height in texels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Raw returns the underlying HAL texture, or nil after Destroy.
func (t *Texture) Raw() hal.Texture {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil
	}
	return t.texture
}

// IsDestroyed returns true if the texture has been destroyed.
func (t *Texture) IsDestroyed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.destroyed
}

// Destroy releases the HAL texture. Called by the owning cacher on device
// teardown.
func (t *Texture) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.destroyed = true
	if t.texture != nil && t.device != nil {
		t.device.DestroyTexture(t.texture)
	}
	t.texture = nil
	t.device = nil
}

// createTexture is the creation factory for TextureToken.
func createTexture(_ context.Context, dev rescache.Device, p TextureParams) (*Texture, error) {
	if p.Width == 0 || p.Height == 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", p.Width, p.Height)
	}

	device, err := halDevice(dev)
	if err != nil {
		return nil, err
	}

	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: p.Label,
		Size: hal.Extent3D{
			Width:              p.Width,
			Height:             p.Height,
			DepthOrArrayLayers: defaultOne(p.DepthOrArrayLayers),
		},
		MipLevelCount: defaultOne(p.MipLevelCount),
		SampleCount:   defaultOne(p.SampleCount),
		Dimension:     p.Dimension,
		Format:        p.Format,
		Usage:         p.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", p.Label, err)
	}

	return &Texture{
		label:   p.Label,
		width:   p.Width,
		height:  p.Height,
		format:  p.Format,
		texture: texture,
		device:  device,
	}, nil
}
