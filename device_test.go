package rescache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newScopedSystem(t *testing.T) (*MainCacher, Token) {
	t.Helper()
	mc := NewMainCacher()
	token := NewToken()
	reg := NewRegistration(token, "Resource", true, StringKeyer,
		func(_ context.Context, _ Device, s string) (*releasable, error) {
			return &releasable{value: s}, nil
		})
	if err := mc.Register(reg); err != nil {
		t.Fatal(err)
	}
	return mc, token
}

func TestDeviceCacherSingleton(t *testing.T) {
	mc, token := newScopedSystem(t)
	dev := newFakeDevice(1)

	a, err := mc.GetCacher(token, dev)
	if err != nil {
		t.Fatal(err)
	}
	b, err := mc.GetCacher(token, dev)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same device produced distinct cacher instances")
	}
}

func TestDeviceCacherSingletonUnderConcurrency(t *testing.T) {
	mc, token := newScopedSystem(t)
	dev := newFakeDevice(1)

	const workers = 32
	instances := make([]Instance, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			inst, err := mc.GetCacher(token, dev)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			instances[i] = inst
		}(i)
	}
	wg.Wait()

	for i, inst := range instances {
		if inst != instances[0] {
			t.Fatalf("worker %d observed a different instance", i)
		}
	}
	if n := mc.Stats().DeviceCachers; n != 1 {
		t.Errorf("device cachers = %d, want 1", n)
	}
}

func TestDeviceIsolation(t *testing.T) {
	mc, token := newScopedSystem(t)
	devA := newFakeDevice(1)
	devB := newFakeDevice(2)
	ctx := context.Background()

	ca, err := GetCacherAs[*releasable, string](mc, token, devA)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := GetCacherAs[*releasable, string](mc, token, devB)
	if err != nil {
		t.Fatal(err)
	}
	if Instance(ca) == Instance(cb) {
		t.Fatal("devices shared a cacher instance")
	}

	ra, err := ca.GetOrCreate(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	rb, err := cb.GetOrCreate(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if ra == rb {
		t.Error("equal params on different devices shared a resource")
	}
}

func TestRetireDeviceLeavesOthersIntact(t *testing.T) {
	mc, token := newScopedSystem(t)
	devA := newFakeDevice(1)
	devB := newFakeDevice(2)
	ctx := context.Background()

	ca, err := GetCacherAs[*releasable, string](mc, token, devA)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := GetCacherAs[*releasable, string](mc, token, devB)
	if err != nil {
		t.Fatal(err)
	}
	ra, _ := ca.GetOrCreate(ctx, "x")
	rb, _ := cb.GetOrCreate(ctx, "x")

	mc.RetireDevice(devA)

	if !ra.destroyed.Load() {
		t.Error("retired device's resource not destroyed")
	}
	if rb.destroyed.Load() {
		t.Error("other device's resource destroyed")
	}
	if _, err := cb.GetOrCreate(ctx, "y"); err != nil {
		t.Errorf("other device's cacher unusable after retirement: %v", err)
	}

	if n := mc.Stats().DeviceRegistries; n != 1 {
		t.Errorf("device registries = %d, want 1", n)
	}
}

func TestRetireDeviceAllowsReintroduction(t *testing.T) {
	mc, token := newScopedSystem(t)
	dev := newFakeDevice(1)

	before, err := mc.GetCacher(token, dev)
	if err != nil {
		t.Fatal(err)
	}
	mc.RetireDevice(dev)

	// The same device can come back; it gets a fresh registry.
	after, err := mc.GetCacher(token, dev)
	if err != nil {
		t.Fatalf("GetCacher after retirement: %v", err)
	}
	if before == after {
		t.Error("retired instance was reused")
	}
}

func TestRetireDeviceIdempotentAndNilSafe(t *testing.T) {
	mc, token := newScopedSystem(t)
	dev := newFakeDevice(1)
	if _, err := mc.GetCacher(token, dev); err != nil {
		t.Fatal(err)
	}

	mc.RetireDevice(dev)
	mc.RetireDevice(dev)
	mc.RetireDevice(newFakeDevice(99))
	mc.RetireDevice(nil)
}

func TestRetireDeviceWaitsForInflightCreation(t *testing.T) {
	mc := NewMainCacher()
	token := NewToken()
	started := make(chan struct{})
	release := make(chan struct{})
	var created atomic.Bool

	reg := NewRegistration(token, "Blocking", true, StringKeyer,
		func(_ context.Context, _ Device, s string) (*releasable, error) {
			close(started)
			<-release
			created.Store(true)
			return &releasable{value: s}, nil
		})
	if err := mc.Register(reg); err != nil {
		t.Fatal(err)
	}

	dev := newFakeDevice(1)
	c, err := GetCacherAs[*releasable, string](mc, token, dev)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		_, _ = c.GetOrCreate(context.Background(), "x")
	}()
	<-started

	retired := make(chan struct{})
	go func() {
		mc.RetireDevice(dev)
		close(retired)
	}()

	select {
	case <-retired:
		t.Fatal("RetireDevice returned while a creation was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-retired

	if !created.Load() {
		t.Error("in-flight creation did not complete before retirement finished")
	}
}
