package typesig

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gogpu/rescache"
)

// Kind is the combinator tag of a signature node.
type Kind uint8

// Signature node kinds.
const (
	// KindLeaf wraps a registered base-type token.
	KindLeaf Kind = iota + 1

	// KindReference marks a borrowed view of the child type.
	KindReference

	// KindPointer marks an owning or shared pointer to the child type.
	KindPointer

	// KindOptional marks a child value that may be absent.
	KindOptional

	// KindVector marks a homogeneous sequence of the child type.
	KindVector

	// KindPair composes exactly two children.
	KindPair

	// KindTuple composes one or more children.
	KindTuple
)

// String returns the lower-case combinator name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindReference:
		return "ref"
	case KindPointer:
		return "ptr"
	case KindOptional:
		return "optional"
	case KindVector:
		return "vector"
	case KindPair:
		return "pair"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Signature is an immutable, structurally hashable description of a
// (possibly composite) data type: either a leaf carrying a base-type
// token, or a combinator node wrapping child signatures. Signatures form
// finite trees; the constructors cannot express a cycle.
//
// Equality and fingerprints are purely structural: two signatures with
// the same kind and equal children are the same type regardless of how or
// when they were built.
type Signature struct {
	kind     Kind
	token    rescache.Token
	children []*Signature

	// fp caches the structural fingerprint; 0 means not yet computed.
	fp atomic.Uint64
}

// Leaf creates a leaf signature for a registered base-type token.
func Leaf(token rescache.Token) *Signature {
	return &Signature{kind: KindLeaf, token: token}
}

// Reference wraps a child signature as a borrowed view.
func Reference(child *Signature) *Signature {
	return &Signature{kind: KindReference, children: []*Signature{child}}
}

// Pointer wraps a child signature behind a pointer.
func Pointer(child *Signature) *Signature {
	return &Signature{kind: KindPointer, children: []*Signature{child}}
}

// Optional wraps a child signature that may be absent.
func Optional(child *Signature) *Signature {
	return &Signature{kind: KindOptional, children: []*Signature{child}}
}

// Vector wraps a child signature as a homogeneous sequence.
func Vector(child *Signature) *Signature {
	return &Signature{kind: KindVector, children: []*Signature{child}}
}

// Pair composes two child signatures.
func Pair(first, second *Signature) *Signature {
	return &Signature{kind: KindPair, children: []*Signature{first, second}}
}

// Tuple composes any number of child signatures.
func Tuple(children ...*Signature) *Signature {
	cs := make([]*Signature, len(children))
	copy(cs, children)
	return &Signature{kind: KindTuple, children: cs}
}

// Kind returns the node's combinator tag.
func (s *Signature) Kind() Kind { return s.kind }

// Token returns the base-type token for leaf nodes; zero otherwise.
func (s *Signature) Token() rescache.Token {
	if s.kind != KindLeaf {
		return 0
	}
	return s.token
}

// Children returns the child signatures. Callers must not modify the
// returned slice.
func (s *Signature) Children() []*Signature { return s.children }

// Equal reports whether two signatures are structurally identical.
func (s *Signature) Equal(o *Signature) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if s.kind != o.kind || s.token != o.token || len(s.children) != len(o.children) {
		return false
	}
	for i, c := range s.children {
		if !c.Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a 64-bit structural hash of the signature, suitable
// for use as a cache key. Structurally identical signatures share a
// fingerprint. The value is computed once and cached.
func (s *Signature) Fingerprint() uint64 {
	if fp := s.fp.Load(); fp != 0 {
		return fp
	}
	w := rescache.NewKeyWriter()
	s.encode(w)
	fp := w.Sum64()
	if fp == 0 {
		fp = 1 // reserve 0 for "not computed"
	}
	s.fp.Store(fp)
	return fp
}

// encode writes a canonical preorder encoding of the tree.
func (s *Signature) encode(w *rescache.KeyWriter) {
	if s == nil {
		w.WriteUint32(0)
		return
	}
	w.WriteUint32(uint32(s.kind))
	if s.kind == KindLeaf {
		w.WriteUint64(uint64(s.token))
		return
	}
	w.WriteUint32(uint32(len(s.children)))
	for _, c := range s.children {
		c.encode(w)
	}
}

// String renders the signature for diagnostics, e.g.
// "vector<pair<leaf#1,leaf#2>>".
func (s *Signature) String() string {
	var b strings.Builder
	s.render(&b)
	return b.String()
}

func (s *Signature) render(b *strings.Builder) {
	if s == nil {
		b.WriteString("nil")
		return
	}
	b.WriteString(s.kind.String())
	if s.kind == KindLeaf {
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(uint64(s.token), 10))
		return
	}
	b.WriteByte('<')
	for i, c := range s.children {
		if i > 0 {
			b.WriteByte(',')
		}
		c.render(b)
	}
	b.WriteByte('>')
}
