package rescache

import (
	"sort"
	"sync"
)

// Registration describes a cacheable resource type: the token it is
// dispatched by, a display name for diagnostics, whether instances are
// scoped per device, and the constructor MainCacher uses for lazy
// instantiation. Build one with NewRegistration.
type Registration struct {
	// Token is the process-unique type token.
	Token Token

	// Name is the human-readable type name ("ShaderModule", "Texture").
	Name string

	// DeviceDependent scopes instances to a device when true; otherwise a
	// single process-wide instance serves all callers.
	DeviceDependent bool

	// newInstance creates a cacher scoped to the given device (nil for
	// device-independent types).
	newInstance func(device Device) Instance
}

// NewRegistration builds a Registration for a Resource/Params pairing.
// opts are forwarded to NewCacher for every instance created from this
// registration.
func NewRegistration[R, P any](
	token Token,
	name string,
	deviceDependent bool,
	keyer Keyer[P],
	factory Factory[R, P],
	opts ...CacherOption,
) Registration {
	reg := Registration{
		Token:           token,
		Name:            name,
		DeviceDependent: deviceDependent,
	}
	if keyer == nil || factory == nil {
		return reg // rejected by Register via newInstance == nil
	}
	reg.newInstance = func(device Device) Instance {
		return NewCacher[R, P](name, device, keyer, factory, opts...)
	}
	return reg
}

// MainCacher is the single entry point of the caching system: it holds
// the process-wide registration table and routes retrieval requests to
// either a per-device registry or a process-wide instance, based on the
// registration's dependence flag.
//
// MainCacher is explicitly constructed and passed through the execution
// context rather than being a package-level singleton; this keeps
// teardown explicit and multi-instance testing straightforward.
//
// MainCacher is safe for concurrent use. Lookups (IsRegistered, TypeName,
// GetCacher hits) take read locks only.
type MainCacher struct {
	// mu protects regs and global.
	mu     sync.RWMutex
	regs   map[Token]Registration
	global map[Token]Instance

	// devMu protects devices. Separate from mu so global and per-device
	// traffic do not contend.
	devMu   sync.RWMutex
	devices map[uint64]*DeviceRegistry
}

// NewMainCacher creates an empty MainCacher.
func NewMainCacher() *MainCacher {
	return &MainCacher{
		regs:    make(map[Token]Registration),
		global:  make(map[Token]Instance),
		devices: make(map[uint64]*DeviceRegistry),
	}
}

// Register stores a cacher registration for its token.
//
// The contract is no-op-on-identical, fail-on-conflict: registering the
// same token again with the same name and dependence flag succeeds
// silently (consumers register defensively every run), while a repeat
// whose name or dependence flag differs fails with a
// *RegistrationConflictError. The first registration's factory remains in
// effect; factory functions are not comparable in Go.
func (m *MainCacher) Register(reg Registration) error {
	if !reg.Token.Valid() {
		return ErrInvalidToken
	}
	if reg.newInstance == nil {
		return ErrNilFactory
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.regs[reg.Token]; ok {
		if existing.Name == reg.Name && existing.DeviceDependent == reg.DeviceDependent {
			return nil // already registered, skip
		}
		return &RegistrationConflictError{
			Token:                   reg.Token,
			Name:                    reg.Name,
			DeviceDependent:         reg.DeviceDependent,
			ExistingName:            existing.Name,
			ExistingDeviceDependent: existing.DeviceDependent,
		}
	}

	m.regs[reg.Token] = reg
	Logger().Info("cacher registered",
		"type", reg.Name, "token", reg.Token, "deviceDependent", reg.DeviceDependent)
	return nil
}

// IsRegistered reports whether the token has a registration.
func (m *MainCacher) IsRegistered(token Token) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.regs[token]
	return ok
}

// TypeName returns the registered display name for the token, or ""
// when the token is unknown.
func (m *MainCacher) TypeName(token Token) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs[token].Name
}

// IsDeviceDependent reports whether the token's registration is
// device-dependent. Unknown tokens report false.
func (m *MainCacher) IsDeviceDependent(token Token) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs[token].DeviceDependent
}

// RegisteredTypes returns the display names of all registrations, sorted.
func (m *MainCacher) RegisteredTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.regs))
	for _, reg := range m.regs {
		names = append(names, reg.Name)
	}
	sort.Strings(names)
	return names
}

// GetCacher returns the cacher instance for the token, lazily creating it
// on first request.
//
// Device-dependent tokens require a device and resolve to the singleton
// instance inside that device's registry; device-independent tokens
// resolve to the process-wide instance and ignore device.
//
// Fails with *TokenNotRegisteredError for unknown tokens and ErrNilDevice
// when a device-dependent token is requested without a device.
func (m *MainCacher) GetCacher(token Token, device Device) (Instance, error) {
	m.mu.RLock()
	reg, ok := m.regs[token]
	m.mu.RUnlock()
	if !ok {
		return nil, &TokenNotRegisteredError{Token: token}
	}

	if !reg.DeviceDependent {
		return m.globalInstance(reg)
	}
	if device == nil {
		return nil, ErrNilDevice
	}
	return m.EnsureDeviceRegistry(device).getOrCreate(reg)
}

// globalInstance returns the process-wide instance for a registration,
// creating it lazily with double-check locking.
func (m *MainCacher) globalInstance(reg Registration) (Instance, error) {
	m.mu.RLock()
	inst, ok := m.global[reg.Token]
	m.mu.RUnlock()
	if ok {
		return inst, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.global[reg.Token]; ok {
		return inst, nil
	}
	inst = reg.newInstance(nil)
	m.global[reg.Token] = inst
	Logger().Debug("global cacher created", "cacher", reg.Name)
	return inst, nil
}

// EnsureDeviceRegistry returns the registry for the device, creating it
// on first request. Hosts call this once per device during their compile
// phase; GetCacher calls it implicitly.
func (m *MainCacher) EnsureDeviceRegistry(device Device) *DeviceRegistry {
	id := device.ID()

	m.devMu.RLock()
	dr, ok := m.devices[id]
	m.devMu.RUnlock()
	if ok {
		return dr
	}

	m.devMu.Lock()
	defer m.devMu.Unlock()
	if dr, ok := m.devices[id]; ok {
		return dr
	}
	dr = newDeviceRegistry(device)
	m.devices[id] = dr
	Logger().Info("device registry created", "device", device.Description())
	return dr
}

// RetireDevice tears down the device's registry: it waits for in-flight
// creations scoped to that device, destroys its cacher instances and
// removes the registry. Other devices' instances and entries remain
// intact and usable. No-op for devices without a registry.
func (m *MainCacher) RetireDevice(device Device) {
	if device == nil {
		return
	}

	m.devMu.Lock()
	dr, ok := m.devices[device.ID()]
	if ok {
		delete(m.devices, device.ID())
	}
	m.devMu.Unlock()

	if ok {
		dr.retire()
	}
}

// CleanupGlobal destroys all process-wide instances. Registrations are
// kept, so subsequent GetCacher calls recreate instances lazily.
func (m *MainCacher) CleanupGlobal() {
	m.mu.Lock()
	instances := make([]Instance, 0, len(m.global))
	for _, inst := range m.global {
		instances = append(instances, inst)
	}
	m.global = make(map[Token]Instance)
	m.mu.Unlock()

	for _, inst := range instances {
		inst.Destroy()
	}
}

// GlobalSnapshot returns the live process-wide instances.
func (m *MainCacher) GlobalSnapshot() []Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Instance, 0, len(m.global))
	for _, inst := range m.global {
		out = append(out, inst)
	}
	return out
}

// DeviceSnapshots returns the live device registries.
func (m *MainCacher) DeviceSnapshots() []*DeviceRegistry {
	m.devMu.RLock()
	defer m.devMu.RUnlock()
	out := make([]*DeviceRegistry, 0, len(m.devices))
	for _, dr := range m.devices {
		out = append(out, dr)
	}
	return out
}

// MainStats summarizes the whole caching system.
type MainStats struct {
	Registrations    int
	GlobalCachers    int
	DeviceRegistries int
	DeviceCachers    int
}

// Stats returns system-wide counts.
func (m *MainCacher) Stats() MainStats {
	m.mu.RLock()
	regs := len(m.regs)
	global := len(m.global)
	m.mu.RUnlock()

	m.devMu.RLock()
	registries := len(m.devices)
	deviceCachers := 0
	for _, dr := range m.devices {
		deviceCachers += dr.Len()
	}
	m.devMu.RUnlock()

	return MainStats{
		Registrations:    regs,
		GlobalCachers:    global,
		DeviceRegistries: registries,
		DeviceCachers:    deviceCachers,
	}
}

// GetCacherAs returns the concrete *Cacher for the token, dispatching at
// runtime via the token and asserting the Resource/Params type
// parameters. It fails with *WrongCacherTypeError when the registered
// instance was built with different type parameters.
func GetCacherAs[R, P any](m *MainCacher, token Token, device Device) (*Cacher[R, P], error) {
	inst, err := m.GetCacher(token, device)
	if err != nil {
		return nil, err
	}
	c, ok := inst.(*Cacher[R, P])
	if !ok {
		return nil, &WrongCacherTypeError{Token: token, Name: inst.Name()}
	}
	return c, nil
}
