package typesig

import (
	"sync"
	"testing"

	"github.com/gogpu/rescache"
)

func TestLeafAcceptance(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	unknown := rescache.NewToken()
	r.RegisterBaseType(image)

	if !r.IsBaseType(image) {
		t.Error("registered token not reported as base type")
	}
	if r.IsBaseType(unknown) {
		t.Error("unregistered token reported as base type")
	}
	if !r.IsAcceptable(Leaf(image)) {
		t.Error("leaf of registered token rejected")
	}
	if r.IsAcceptable(Leaf(unknown)) {
		t.Error("leaf of unregistered token accepted")
	}
}

func TestCompositeAcceptance(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	sampler := rescache.NewToken()
	unregistered := rescache.NewToken()
	r.RegisterBaseType(image)
	r.RegisterBaseType(sampler)

	good := Pair(Leaf(image), Leaf(sampler))
	if !r.IsAcceptable(good) {
		t.Error("pair of registered leaves rejected")
	}

	bad := Pair(Leaf(image), Leaf(unregistered))
	if r.IsAcceptable(bad) {
		t.Error("pair containing unregistered leaf accepted")
	}

	deep := Vector(Optional(Pointer(Tuple(Leaf(image), Reference(Leaf(sampler))))))
	if !r.IsAcceptable(deep) {
		t.Error("deep composite of registered leaves rejected")
	}
}

func TestMalformedSignatures(t *testing.T) {
	r := NewCachedTypeRegistry()
	r.RegisterBaseType(rescache.NewToken())

	if r.IsAcceptable(nil) {
		t.Error("nil signature accepted")
	}
	if r.IsAcceptable(Tuple()) {
		t.Error("empty tuple accepted")
	}
	if r.IsAcceptable(Vector(nil)) {
		t.Error("vector of nil accepted")
	}
}

func TestMemoizationSkipsRepeatWalks(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	r.RegisterBaseType(image)

	sig := Vector(Pair(Leaf(image), Leaf(image)))
	for i := 0; i < 5; i++ {
		if !r.IsAcceptable(sig) {
			t.Fatal("signature rejected")
		}
	}

	stats := r.Stats()
	if stats.Lookups != 5 {
		t.Errorf("lookups = %d, want 5", stats.Lookups)
	}
	if stats.Walks != 1 {
		t.Errorf("walks = %d, want 1: repeat queries must be memoized", stats.Walks)
	}
	if stats.MemoEntries != 1 {
		t.Errorf("memo entries = %d, want 1", stats.MemoEntries)
	}
}

func TestStaleNegativeOnRetainedInstance(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	sampler := rescache.NewToken()
	r.RegisterBaseType(image)

	retained := Pair(Leaf(image), Leaf(sampler))
	if r.IsAcceptable(retained) {
		t.Fatal("signature with unregistered leaf accepted")
	}

	// Registering the missing base type does not invalidate the memo:
	// the retained instance keeps its stale negative.
	r.RegisterBaseType(sampler)
	if r.IsAcceptable(retained) {
		t.Error("retained instance should keep its memoized negative result")
	}

	// A freshly built equal signature validates against the current set.
	fresh := Pair(Leaf(image), Leaf(sampler))
	if !fresh.Equal(retained) {
		t.Fatal("fresh signature should be structurally equal to retained one")
	}
	if !r.IsAcceptable(fresh) {
		t.Error("fresh equal instance should validate against current base types")
	}
}

func TestClearMemoDropsStaleResults(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	sampler := rescache.NewToken()
	r.RegisterBaseType(image)

	sig := Pair(Leaf(image), Leaf(sampler))
	if r.IsAcceptable(sig) {
		t.Fatal("unexpected acceptance")
	}

	r.RegisterBaseType(sampler)
	r.ClearMemo()

	if !r.IsAcceptable(sig) {
		t.Error("after ClearMemo the instance should revalidate against current base types")
	}
}

func TestRegisterBaseTypeIgnoresInvalid(t *testing.T) {
	r := NewCachedTypeRegistry()
	r.RegisterBaseType(rescache.Token(0))
	if r.Stats().BaseTypes != 0 {
		t.Error("zero token was registered")
	}
}

func TestConcurrentValidation(t *testing.T) {
	r := NewCachedTypeRegistry()
	image := rescache.NewToken()
	sampler := rescache.NewToken()
	r.RegisterBaseType(image)
	r.RegisterBaseType(sampler)

	good := Vector(Pair(Leaf(image), Leaf(sampler)))
	bad := Vector(Leaf(rescache.NewToken()))

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !r.IsAcceptable(good) {
					t.Error("acceptable signature rejected")
					return
				}
				if r.IsAcceptable(bad) {
					t.Error("unacceptable signature accepted")
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := r.Stats().MemoEntries; n != 2 {
		t.Errorf("memo entries = %d, want 2", n)
	}
}
