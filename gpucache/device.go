package gpucache

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rescache"
)

// Device errors.
var (
	// ErrNoHALDevice is returned when a factory receives a device that
	// does not expose a gogpu/wgpu HAL device.
	ErrNoHALDevice = errors.New("gpucache: device does not expose a HAL device")

	// ErrNilHALDevice is returned when constructing a device wrapper
	// around a nil HAL device.
	ErrNilHALDevice = errors.New("gpucache: HAL device is nil")
)

// HALHolder is implemented by rescache devices that expose the underlying
// gogpu/wgpu HAL device. The factories in this package require it.
type HALHolder interface {
	rescache.Device

	// Raw returns the underlying HAL device.
	Raw() hal.Device
}

// HALDevice adapts a gogpu/wgpu hal.Device into a rescache.Device.
//
// The host application owns the HAL device; HALDevice only carries it.
// Key principle: the cache RECEIVES the device from the host, it does NOT
// create one.
type HALDevice struct {
	id    uint64
	desc  string
	dev   hal.Device
	queue hal.Queue
}

// NewHALDevice wraps a HAL device with a process-unique id and a
// human-readable description.
func NewHALDevice(id uint64, desc string, dev hal.Device) *HALDevice {
	return &HALDevice{id: id, desc: desc, dev: dev}
}

// WithQueue attaches the device's queue for factories that need to submit
// upload work. Returns the receiver for chaining.
func (d *HALDevice) WithQueue(q hal.Queue) *HALDevice {
	d.queue = q
	return d
}

// ID implements rescache.Device.
func (d *HALDevice) ID() uint64 { return d.id }

// Description implements rescache.Device.
func (d *HALDevice) Description() string { return d.desc }

// Raw returns the underlying HAL device.
func (d *HALDevice) Raw() hal.Device { return d.dev }

// Queue returns the attached queue, or nil.
func (d *HALDevice) Queue() hal.Queue { return d.queue }

// ProviderDevice adapts a gpucontext.DeviceProvider (implemented by host
// frameworks such as gogpu.App) into a rescache.Device, so hosts can hand
// their shared device straight to the caching system.
type ProviderDevice struct {
	id       uint64
	desc     string
	provider gpucontext.DeviceProvider
}

// FromProvider wraps a device provider with a process-unique id and a
// human-readable description.
func FromProvider(id uint64, desc string, p gpucontext.DeviceProvider) *ProviderDevice {
	return &ProviderDevice{id: id, desc: desc, provider: p}
}

// ID implements rescache.Device.
func (d *ProviderDevice) ID() uint64 { return d.id }

// Description implements rescache.Device.
func (d *ProviderDevice) Description() string { return d.desc }

// Provider returns the wrapped device provider.
func (d *ProviderDevice) Provider() gpucontext.DeviceProvider { return d.provider }

// halDevice extracts the HAL device from a rescache.Device, failing when
// the device was not built by this package (or another HALHolder).
func halDevice(dev rescache.Device) (hal.Device, error) {
	h, ok := dev.(HALHolder)
	if !ok {
		if dev == nil {
			return nil, ErrNoHALDevice
		}
		return nil, fmt.Errorf("%w: %s", ErrNoHALDevice, dev.Description())
	}
	raw := h.Raw()
	if raw == nil {
		return nil, ErrNilHALDevice
	}
	return raw, nil
}
