package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// masterKeySize is the required decoded master key length (AES-256).
	masterKeySize = 32

	// derivedKeySize is the per-operation key length produced by the KDF.
	derivedKeySize = 32

	// defaultIterations is the PBKDF2-SHA256 work factor used since the
	// first release. Envelopes do not record the count, so every reader and
	// writer of the same credential store must agree on it; see
	// WithIterations before changing it.
	defaultIterations = 100000
)

// deriveKey stretches the master key into a per-operation key. The salt is
// fresh per encryption, so no two envelopes ever share a derived key.
func deriveKey(master, salt []byte, iterations int) []byte {
	return pbkdf2.Key(master, salt, iterations, derivedKeySize, sha256.New)
}
