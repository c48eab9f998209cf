package typesig

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rescache"
)

// CachedTypeRegistry holds the set of accepted base-type tokens and a
// memo table of validation results, answering "is this type legal to
// cache" in amortized O(1).
//
// The memo table is append-only: each retained signature's result is
// written once and never overwritten. In particular, registering a base
// type after a negative result has been memoized does not retroactively
// fix that result — re-querying with the same signature instance keeps
// returning the stale false, while a freshly constructed equal signature
// validates against the current base-type set. Register base types before
// issuing validation queries that reference them.
//
// CachedTypeRegistry is safe for concurrent use; warm lookups take a read
// lock only.
type CachedTypeRegistry struct {
	mu       sync.RWMutex
	accepted map[rescache.Token]struct{}
	memo     map[*Signature]bool

	lookups atomic.Uint64
	walks   atomic.Uint64
}

// NewCachedTypeRegistry creates an empty registry.
func NewCachedTypeRegistry() *CachedTypeRegistry {
	return &CachedTypeRegistry{
		accepted: make(map[rescache.Token]struct{}),
		memo:     make(map[*Signature]bool),
	}
}

// RegisterBaseType adds a token to the accepted leaf set. No-op if the
// token is already present. Existing memoized results are not
// invalidated.
func (r *CachedTypeRegistry) RegisterBaseType(token rescache.Token) {
	if !token.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted[token] = struct{}{}
}

// IsBaseType reports whether the token is in the accepted leaf set.
func (r *CachedTypeRegistry) IsBaseType(token rescache.Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accepted[token]
	return ok
}

// IsAcceptable reports whether the signature is legal to cache: a leaf is
// acceptable iff its token is registered, and a combinator is acceptable
// iff all of its children are.
//
// The first query for a signature walks its tree (O(size)); the result is
// memoized so every later query for the same signature is O(1). A nil
// signature or nil child is never acceptable. IsAcceptable never panics;
// callers that require a hard failure on false must raise it themselves.
func (r *CachedTypeRegistry) IsAcceptable(sig *Signature) bool {
	r.lookups.Add(1)
	if sig == nil {
		return false
	}

	// Fast path: memoized result.
	r.mu.RLock()
	if ok, hit := r.memo[sig]; hit {
		r.mu.RUnlock()
		return ok
	}
	// Cold path: walk the tree against the current accepted set while
	// still holding the read lock.
	ok := r.acceptable(sig)
	r.mu.RUnlock()
	r.walks.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have memoized meanwhile; results are written
	// exactly once per signature.
	if prev, hit := r.memo[sig]; hit {
		return prev
	}
	r.memo[sig] = ok
	return ok
}

// acceptable walks the tree. Callers hold at least the read lock.
func (r *CachedTypeRegistry) acceptable(sig *Signature) bool {
	if sig == nil {
		return false
	}
	if sig.kind == KindLeaf {
		_, ok := r.accepted[sig.token]
		return ok
	}
	if len(sig.children) == 0 {
		return false // malformed combinator
	}
	for _, c := range sig.children {
		if !r.acceptable(c) {
			return false
		}
	}
	return true
}

// RegistryStats describes validation cache usage.
type RegistryStats struct {
	// BaseTypes is the number of accepted leaf tokens.
	BaseTypes int

	// MemoEntries is the number of memoized signatures.
	MemoEntries int

	// Lookups counts IsAcceptable calls.
	Lookups uint64

	// Walks counts full tree traversals (cold lookups).
	Walks uint64
}

// Stats returns current validation cache statistics.
func (r *CachedTypeRegistry) Stats() RegistryStats {
	r.mu.RLock()
	base := len(r.accepted)
	memo := len(r.memo)
	r.mu.RUnlock()

	return RegistryStats{
		BaseTypes:   base,
		MemoEntries: memo,
		Lookups:     r.lookups.Load(),
		Walks:       r.walks.Load(),
	}
}

// ClearMemo drops all memoized results, keeping the accepted base-type
// set. Useful for tests.
func (r *CachedTypeRegistry) ClearMemo() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[*Signature]bool)
}
