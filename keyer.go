package rescache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Keyer computes a deterministic cache key from creation parameters.
// Two parameter values describing the same resource must produce the same
// key, and the key must depend on every field that affects creation.
//
// Use a KeyWriter to build keyers for struct parameters, or StringKeyer /
// BytesKeyer for simple parameter types.
type Keyer[P any] func(P) uint64

// StringKeyer computes an XXH64 hash of a string key.
func StringKeyer(s string) uint64 {
	return xxhash.Sum64String(s)
}

// BytesKeyer computes an XXH64 hash of a byte slice key.
func BytesKeyer(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// KeyWriter accumulates parameter fields into an XXH64 key.
//
// The Write methods are length- and order-sensitive: WriteString prefixes
// the length so that adjacent variable-length fields cannot collide.
//
// Example:
//
//	func textureKey(p TextureParams) uint64 {
//	    w := rescache.NewKeyWriter()
//	    w.WriteString(p.Label)
//	    w.WriteUint32(p.Width)
//	    w.WriteUint32(p.Height)
//	    w.WriteUint32(uint32(p.Format))
//	    return w.Sum64()
//	}
type KeyWriter struct {
	d *xxhash.Digest
}

// NewKeyWriter creates an empty KeyWriter.
func NewKeyWriter() *KeyWriter {
	return &KeyWriter{d: xxhash.New()}
}

// WriteUint32 appends a uint32 field to the key.
func (w *KeyWriter) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = w.d.Write(buf[:])
}

// WriteUint64 appends a uint64 field to the key.
func (w *KeyWriter) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.d.Write(buf[:])
}

// WriteString appends a length-prefixed string field to the key.
//
//nolint:gosec // G115: parameter field strings are short (labels, entry points)
func (w *KeyWriter) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	_, _ = w.d.WriteString(s)
}

// WriteBytes appends a length-prefixed byte slice field to the key.
//
//nolint:gosec // G115: parameter blobs are bounded by resource descriptor sizes
func (w *KeyWriter) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	_, _ = w.d.Write(b)
}

// WriteBool appends a bool field to the key.
func (w *KeyWriter) WriteBool(v bool) {
	if v {
		_, _ = w.d.Write([]byte{1})
	} else {
		_, _ = w.d.Write([]byte{0})
	}
}

// Sum64 returns the key for everything written so far.
func (w *KeyWriter) Sum64() uint64 {
	return w.d.Sum64()
}
