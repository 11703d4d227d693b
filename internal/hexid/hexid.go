// Package hexid generates short random hex identifiers for playback sessions
// and debug log files.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns an 8-character lowercase hex string.
func New() string {
	return NewN(4)
}

// NewN returns a lowercase hex string encoding n random bytes.
func NewN(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("hexid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
