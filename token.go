package rescache

import (
	"fmt"
	"sync/atomic"
)

// Token identifies a cached resource type at runtime. Tokens replace
// language reflection for dispatch: each distinct resource or wrapper type
// allocates one token with NewToken, stores it in a package-level variable
// and uses it for registration, retrieval and type-signature leaves.
//
// The zero Token is invalid and rejected by Register.
type Token uint64

// tokenCounter is used to generate process-unique tokens.
var tokenCounter uint64

// NewToken returns a fresh process-unique token, stable for the process's
// lifetime. Safe for concurrent use.
func NewToken() Token {
	return Token(atomic.AddUint64(&tokenCounter, 1))
}

// Valid reports whether the token was produced by NewToken.
func (t Token) Valid() bool { return t != 0 }

func (t Token) String() string {
	return fmt.Sprintf("token#%d", uint64(t))
}
