package rescache

import (
	"fmt"
	"sync"
)

// Device identifies a physical device owning device-scoped resources.
//
// rescache never creates or drives devices; the host application supplies
// them (gpucache adapts gogpu/wgpu HAL devices and gpucontext providers).
// ID must be process-unique and stable for the device's lifetime; device
// registries are keyed by it.
type Device interface {
	// ID returns a process-unique identifier for the device.
	ID() uint64

	// Description returns a human-readable device description, used for
	// logging and cache manifest directories.
	Description() string
}

// DeviceRegistry owns the live cacher instances for one device. Instances
// are created lazily on first request and torn down together when the
// device is retired.
//
// Registries for different devices are fully independent: they never
// contend on the same lock.
type DeviceRegistry struct {
	device Device

	mu        sync.RWMutex
	instances map[Token]Instance
	retired   bool
}

func newDeviceRegistry(device Device) *DeviceRegistry {
	return &DeviceRegistry{
		device:    device,
		instances: make(map[Token]Instance),
	}
}

// Device returns the device this registry is scoped to.
func (r *DeviceRegistry) Device() Device { return r.device }

// Len returns the number of live cacher instances.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Instances returns a snapshot of the live cacher instances.
func (r *DeviceRegistry) Instances() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	return out
}

// getOrCreate returns the singleton instance for the registration,
// creating it on first request. Concurrent callers for the same token
// observe the same instance.
func (r *DeviceRegistry) getOrCreate(reg Registration) (Instance, error) {
	// Fast path: read lock.
	r.mu.RLock()
	if r.retired {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrDeviceRetired, r.device.Description())
	}
	if inst, ok := r.instances[reg.Token]; ok {
		r.mu.RUnlock()
		return inst, nil
	}
	r.mu.RUnlock()

	// Slow path: write lock with double-check.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired {
		return nil, fmt.Errorf("%w: %s", ErrDeviceRetired, r.device.Description())
	}
	if inst, ok := r.instances[reg.Token]; ok {
		return inst, nil
	}

	inst := reg.newInstance(r.device)
	r.instances[reg.Token] = inst
	Logger().Debug("device cacher created",
		"cacher", reg.Name, "device", r.device.Description())
	return inst, nil
}

// retire destroys every instance and permanently disables the registry.
// Each instance's Destroy waits for its in-flight creations, so resources
// are never released mid-creation. Instances belonging to other devices
// are unaffected.
func (r *DeviceRegistry) retire() {
	r.mu.Lock()
	if r.retired {
		r.mu.Unlock()
		return
	}
	r.retired = true
	instances := make([]Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	r.instances = make(map[Token]Instance)
	r.mu.Unlock()

	// Destroy outside the lock: each Destroy blocks on in-flight
	// creations, which must not deadlock against getOrCreate callers.
	for _, inst := range instances {
		inst.Destroy()
	}
	Logger().Info("device registry retired",
		"device", r.device.Description(), "cachers", len(instances))
}
