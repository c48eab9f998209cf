// Package typesig decides whether an arbitrarily composed data type is
// legal to cache, without registering every concrete combination.
//
// A Signature describes a (possibly composite) type structurally: a leaf
// wraps a registered base-type token, and combinators (Reference,
// Pointer, Optional, Vector, Pair, Tuple) compose child signatures into
// finite trees. Registering a handful of base types makes all of their
// compositions automatically expressible:
//
//	tr := typesig.NewCachedTypeRegistry()
//	tr.RegisterBaseType(imageToken)
//	tr.RegisterBaseType(samplerToken)
//
//	sig := typesig.Vector(typesig.Pair(
//	    typesig.Leaf(imageToken),
//	    typesig.Leaf(samplerToken),
//	))
//	tr.IsAcceptable(sig) // true, full tree walk
//	tr.IsAcceptable(sig) // true, memoized O(1)
//
// Acceptance checks recur on hot paths (once per frame per resource
// slot), so results are memoized: the first query for a signature walks
// the tree, every later query for that signature is O(1).
//
// IsAcceptable never panics and never returns an error; an unknown leaf
// token simply yields false. Callers that require a hard failure translate
// false into a configuration error themselves.
package typesig
