package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

// Combine builds a composite hash: H( content || salt1 || salt2 ... ).
// Cache keys combine a file's content hash with the config digest.
func Combine(content Digest, salts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, s := range salts {
		_, _ = h.Write(s[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
