package rescache

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNilDevice is returned when a device-dependent cacher is requested
	// without a device.
	ErrNilDevice = errors.New("rescache: device-dependent type requires a device")

	// ErrDeviceRetired is returned when a cacher is requested for a device
	// whose registry has been torn down.
	ErrDeviceRetired = errors.New("rescache: device has been retired")

	// ErrCacherDestroyed is returned by GetOrCreate after the owning cacher
	// has been destroyed.
	ErrCacherDestroyed = errors.New("rescache: cacher has been destroyed")

	// ErrInvalidToken is returned when registering with the zero Token.
	ErrInvalidToken = errors.New("rescache: invalid zero token")

	// ErrNilFactory is returned when registering without a creation factory.
	ErrNilFactory = errors.New("rescache: registration factory is nil")
)

// TokenNotRegisteredError indicates a requested type token was never
// registered. It reflects a mismatch between declared and used types and
// must be reported, never swallowed.
type TokenNotRegisteredError struct {
	Token Token
}

func (e *TokenNotRegisteredError) Error() string {
	return fmt.Sprintf("rescache: type %v is not registered", e.Token)
}

// RegistrationConflictError indicates a repeat registration whose
// descriptor differs from the existing one. Registering an identical
// descriptor is a no-op; only conflicting repeats fail.
type RegistrationConflictError struct {
	Token Token

	// Name and DeviceDependent describe the rejected registration.
	Name            string
	DeviceDependent bool

	// ExistingName and ExistingDeviceDependent describe the registration
	// already held for the token.
	ExistingName            string
	ExistingDeviceDependent bool
}

func (e *RegistrationConflictError) Error() string {
	return fmt.Sprintf("rescache: conflicting registration for %v: %q (device-dependent=%t) already registered as %q (device-dependent=%t)",
		e.Token, e.Name, e.DeviceDependent, e.ExistingName, e.ExistingDeviceDependent)
}

// WrongCacherTypeError indicates a cacher instance exists for the token
// but its Resource/Params type parameters do not match the requested ones.
type WrongCacherTypeError struct {
	Token Token
	Name  string
}

func (e *WrongCacherTypeError) Error() string {
	return fmt.Sprintf("rescache: cacher %q for %v has a different resource or params type", e.Name, e.Token)
}

// CreationError wraps a factory failure for a given key. The failure is
// per-call: the key stays unpopulated and a later call may retry.
type CreationError struct {
	Cacher string
	Key    uint64
	Err    error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("rescache: %s: creation failed for key %016x: %v", e.Cacher, e.Key, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }
