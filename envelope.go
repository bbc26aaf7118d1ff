package crypto

import (
	"encoding/base64"
	"fmt"
)

// Envelope layout constants. The concatenation
// salt(32) || iv(12) || tag(16) || ciphertext, base64-encoded, is the
// external storage contract and must stay byte-compatible.
const (
	// saltSize is the PBKDF2 salt length in bytes.
	saltSize = 32

	// ivSize is the AES-GCM nonce length in bytes.
	ivSize = 12

	// tagSize is the AES-GCM authentication tag length in bytes.
	tagSize = 16

	// envelopeOverhead is the fixed prefix before the ciphertext. Any decoded
	// envelope shorter than this is malformed.
	envelopeOverhead = saltSize + ivSize + tagSize
)

// envelope holds the parsed sections of one encrypted value.
type envelope struct {
	salt       []byte
	iv         []byte
	tag        []byte
	ciphertext []byte
}

// sealEnvelope serializes the sections in wire order and base64-encodes them.
func sealEnvelope(salt, iv, tag, ciphertext []byte) string {
	buf := make([]byte, 0, envelopeOverhead+len(ciphertext))
	buf = append(buf, salt...)
	buf = append(buf, iv...)
	buf = append(buf, tag...)
	buf = append(buf, ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

// openEnvelope decodes and splits an envelope. Each section is a defensive
// copy so later wiping never touches shared memory.
func openEnvelope(s string) (*envelope, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: envelope is not valid base64", ErrCrypto)
	}
	if len(data) < envelopeOverhead {
		return nil, fmt.Errorf("%w: envelope too short: %d bytes, need at least %d",
			ErrCrypto, len(data), envelopeOverhead)
	}

	return &envelope{
		salt:       append([]byte(nil), data[:saltSize]...),
		iv:         append([]byte(nil), data[saltSize:saltSize+ivSize]...),
		tag:        append([]byte(nil), data[saltSize+ivSize:envelopeOverhead]...),
		ciphertext: append([]byte(nil), data[envelopeOverhead:]...),
	}, nil
}
