package rescache

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func stringFactory(_ context.Context, _ Device, s string) (string, error) {
	return "v:" + s, nil
}

func intFactory(_ context.Context, _ Device, s string) (int, error) {
	return len(s), nil
}

func TestRegisterIdempotentAndConflict(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()

	reg := NewRegistration(token, "Mesh", true, StringKeyer, stringFactory)
	if err := mc.Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	// Identical repeat is a no-op.
	if err := mc.Register(NewRegistration(token, "Mesh", true, StringKeyer, stringFactory)); err != nil {
		t.Errorf("identical repeat = %v, want nil", err)
	}

	// Different name conflicts.
	err := mc.Register(NewRegistration(token, "Texture", true, StringKeyer, stringFactory))
	var conflict *RegistrationConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("renamed repeat = %v, want *RegistrationConflictError", err)
	}
	if conflict.ExistingName != "Mesh" || conflict.Name != "Texture" {
		t.Errorf("conflict = %+v, want existing Mesh vs Texture", conflict)
	}

	// Different dependence flag conflicts.
	err = mc.Register(NewRegistration(token, "Mesh", false, StringKeyer, stringFactory))
	if !errors.As(err, &conflict) {
		t.Fatalf("flipped dependence = %v, want *RegistrationConflictError", err)
	}

	// The original registration stays in effect.
	if name := mc.TypeName(token); name != "Mesh" {
		t.Errorf("TypeName = %q, want Mesh", name)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	mc := NewMainCacher()

	err := mc.Register(NewRegistration(Token(0), "Zero", false, StringKeyer, stringFactory))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("zero token = %v, want ErrInvalidToken", err)
	}

	err = mc.Register(NewRegistration[string, string](NewToken(), "NoFactory", false, StringKeyer, nil))
	if !errors.Is(err, ErrNilFactory) {
		t.Errorf("nil factory = %v, want ErrNilFactory", err)
	}

	err = mc.Register(NewRegistration[string, string](NewToken(), "NoKeyer", false, nil, stringFactory))
	if !errors.Is(err, ErrNilFactory) {
		t.Errorf("nil keyer = %v, want ErrNilFactory", err)
	}
}

func TestRegistrationLookups(t *testing.T) {
	mc := NewMainCacher()
	known := NewToken()
	unknown := NewToken()

	if err := mc.Register(NewRegistration(known, "Shader", true, StringKeyer, stringFactory)); err != nil {
		t.Fatal(err)
	}

	if !mc.IsRegistered(known) {
		t.Error("IsRegistered(known) = false")
	}
	if mc.IsRegistered(unknown) {
		t.Error("IsRegistered(unknown) = true")
	}
	if name := mc.TypeName(unknown); name != "" {
		t.Errorf("TypeName(unknown) = %q, want empty", name)
	}
	if mc.IsDeviceDependent(unknown) {
		t.Error("IsDeviceDependent(unknown) = true")
	}
	if !mc.IsDeviceDependent(known) {
		t.Error("IsDeviceDependent(known) = false")
	}
}

func TestRegisteredTypesSorted(t *testing.T) {
	mc := NewMainCacher()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := mc.Register(NewRegistration(NewToken(), name, false, StringKeyer, stringFactory)); err != nil {
			t.Fatal(err)
		}
	}
	got := mc.RegisteredTypes()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegisteredTypes = %v, want %v", got, want)
	}
}

func TestGetCacherUnknownToken(t *testing.T) {
	mc := NewMainCacher()
	_, err := mc.GetCacher(NewToken(), nil)
	var tne *TokenNotRegisteredError
	if !errors.As(err, &tne) {
		t.Errorf("error = %v, want *TokenNotRegisteredError", err)
	}
}

func TestGetCacherNilDeviceForDependent(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()
	if err := mc.Register(NewRegistration(token, "Mesh", true, StringKeyer, stringFactory)); err != nil {
		t.Fatal(err)
	}

	_, err := mc.GetCacher(token, nil)
	if !errors.Is(err, ErrNilDevice) {
		t.Errorf("error = %v, want ErrNilDevice", err)
	}
}

func TestGlobalInstanceIgnoresDevice(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()
	if err := mc.Register(NewRegistration(token, "Lookup", false, StringKeyer, intFactory)); err != nil {
		t.Fatal(err)
	}

	a, err := mc.GetCacher(token, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := mc.GetCacher(token, newFakeDevice(7))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("device-independent type produced distinct instances")
	}
}

func TestGetCacherAs(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()
	if err := mc.Register(NewRegistration(token, "Lookup", false, StringKeyer, intFactory)); err != nil {
		t.Fatal(err)
	}

	c, err := GetCacherAs[int, string](mc, token, nil)
	if err != nil {
		t.Fatalf("GetCacherAs: %v", err)
	}
	v, err := c.GetOrCreate(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("value = %d, want 5", v)
	}

	// Wrong type parameters fail with a typed error.
	_, err = GetCacherAs[string, string](mc, token, nil)
	var wrong *WrongCacherTypeError
	if !errors.As(err, &wrong) {
		t.Errorf("error = %v, want *WrongCacherTypeError", err)
	}
}

func TestCleanupGlobal(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()
	if err := mc.Register(NewRegistration(token, "Lookup", false, StringKeyer, intFactory)); err != nil {
		t.Fatal(err)
	}

	before, err := mc.GetCacher(token, nil)
	if err != nil {
		t.Fatal(err)
	}

	mc.CleanupGlobal()

	// Registrations survive; instances are recreated lazily.
	if !mc.IsRegistered(token) {
		t.Error("CleanupGlobal dropped the registration")
	}
	after, err := mc.GetCacher(token, nil)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("CleanupGlobal did not drop the old instance")
	}
}

func TestMainStats(t *testing.T) {
	mc := NewMainCacher()
	global := NewToken()
	scoped := NewToken()
	if err := mc.Register(NewRegistration(global, "Lookup", false, StringKeyer, intFactory)); err != nil {
		t.Fatal(err)
	}
	if err := mc.Register(NewRegistration(scoped, "Mesh", true, StringKeyer, stringFactory)); err != nil {
		t.Fatal(err)
	}

	if _, err := mc.GetCacher(global, nil); err != nil {
		t.Fatal(err)
	}
	dev := newFakeDevice(1)
	if _, err := mc.GetCacher(scoped, dev); err != nil {
		t.Fatal(err)
	}

	stats := mc.Stats()
	want := MainStats{Registrations: 2, GlobalCachers: 1, DeviceRegistries: 1, DeviceCachers: 1}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
}
