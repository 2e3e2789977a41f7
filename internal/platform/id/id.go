package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// RandomHex yields hex ids of Size random bytes (8 when unset).
type RandomHex struct {
	Size int
}

func (r RandomHex) New() string {
	size := r.Size
	if size <= 0 {
		size = 8
	}
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Sequence is a deterministic Generator for tests.
type Sequence struct {
	Prefix string
	next   int
}

func (s *Sequence) New() string {
	s.next++
	return s.Prefix + hex.EncodeToString([]byte{byte(s.next)})
}
