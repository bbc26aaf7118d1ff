package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"
)

// Engine encrypts and decrypts credentials for one source under one master
// key. The key is resolved once at construction and held in a memguard
// locked buffer until Destroy wipes it.
//
// Operations on one engine are serialized internally; distinct engines are
// fully independent and safe to use concurrently. An engine should be
// constructed immediately before the operations that need it and destroyed
// right after, keeping the window during which derived keys and plaintext
// exist in memory as small as possible.
type Engine struct {
	mu         sync.Mutex
	source     string
	master     *memguard.LockedBuffer
	buffers    *tempBuffers
	iterations int
	destroyed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithIterations overrides the PBKDF2 work factor. The envelope format does
// not record the iteration count: readers and writers of the same stored
// credentials must be configured with the same value, so changing it means
// re-encrypting everything already stored.
func WithIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.iterations = n
		}
	}
}

// New creates an engine for the given credential source. The master key is
// resolved from cfg under ConfigKeyName(source) and must be a base64-encoded
// 256-bit value; anything else fails with ErrConfiguration.
func New(source string, cfg ConfigProvider, opts ...Option) (*Engine, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: source must not be empty", ErrConfiguration)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config provider is nil", ErrConfiguration)
	}

	name := ConfigKeyName(source)
	encoded, ok := cfg.Lookup(name)
	if !ok || encoded == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrConfiguration, name)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrConfiguration, name)
	}
	if len(key) != masterKeySize {
		memguard.WipeBytes(key)
		return nil, fmt.Errorf("%w: %s must decode to %d bytes, got %d",
			ErrConfiguration, name, masterKeySize, len(key))
	}

	e := &Engine{
		source: source,
		// NewBufferFromBytes moves the key into protected memory and wipes
		// the source slice.
		master:     memguard.NewBufferFromBytes(key),
		buffers:    &tempBuffers{},
		iterations: defaultIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Source returns the credential source tag the engine was constructed for.
func (e *Engine) Source() string {
	return e.source
}

// Encrypt seals the UTF-8 plaintext into a base64 envelope. A fresh salt and
// IV are drawn per call, so encrypting the same value twice yields different
// envelopes. Every ephemeral buffer the call allocates is zeroed before it
// returns, on success and on error alike.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return "", fmt.Errorf("%w: Encrypt after Destroy", ErrDestroyed)
	}

	span, start := e.startOp("Encrypt")
	env, err := e.encrypt(plaintext)
	e.endOp(span, "encrypt", start, err)
	return env, err
}

func (e *Engine) encrypt(plaintext string) (string, error) {
	defer e.buffers.wipeAll()

	salt, err := e.randomBuffer(saltSize)
	if err != nil {
		return "", err
	}
	iv, err := e.randomBuffer(ivSize)
	if err != nil {
		return "", err
	}

	// The input string is immutable; the cipher works on a tracked copy so
	// the plaintext bytes can be wiped.
	msg := e.buffers.track([]byte(plaintext))
	key := e.buffers.track(deriveKey(e.master.Bytes(), salt, e.iterations))

	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	// Seal appends the 16-byte tag to the ciphertext; the envelope stores
	// the tag before the ciphertext, so split them back out.
	sealed := e.buffers.track(aead.Seal(nil, iv, msg, nil))
	split := len(sealed) - tagSize

	return sealEnvelope(salt, iv, sealed[split:], sealed[:split]), nil
}

// Decrypt opens a base64 envelope produced by Encrypt and returns the
// original plaintext. A malformed envelope, a tampered byte anywhere in it,
// or the wrong master key all fail with ErrCrypto; unauthenticated data is
// never returned. Ephemeral buffers are zeroed before the call returns.
func (e *Engine) Decrypt(envelope string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return "", fmt.Errorf("%w: Decrypt after Destroy", ErrDestroyed)
	}

	span, start := e.startOp("Decrypt")
	plaintext, err := e.decrypt(envelope)
	e.endOp(span, "decrypt", start, err)
	return plaintext, err
}

func (e *Engine) decrypt(s string) (string, error) {
	defer e.buffers.wipeAll()

	env, err := openEnvelope(s)
	if err != nil {
		return "", err
	}
	e.buffers.track(env.salt)
	e.buffers.track(env.iv)
	e.buffers.track(env.tag)
	e.buffers.track(env.ciphertext)

	key := e.buffers.track(deriveKey(e.master.Bytes(), env.salt, e.iterations))
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	// GCM expects ciphertext || tag.
	sealed, err := e.newTempBuffer(len(env.ciphertext) + tagSize)
	if err != nil {
		return "", err
	}
	copy(sealed, env.ciphertext)
	copy(sealed[len(env.ciphertext):], env.tag)

	plaintext, err := aead.Open(nil, env.iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrCrypto)
	}
	e.buffers.track(plaintext)

	// The returned string is the caller's copy; the buffer it was built
	// from is wiped by the deferred wipeAll.
	return string(plaintext), nil
}

// Destroy wipes the master key, zeroes every tracked ephemeral buffer and
// marks the engine destroyed. The key buffer and the registry are released;
// only the source tag survives, so Source still labels the engine in logs
// and error reports after teardown. Destroy is idempotent; all later
// operations fail with ErrDestroyed.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return
	}
	e.buffers.wipeAll()
	e.buffers = nil
	if e.master != nil {
		e.master.Destroy()
		e.master = nil
	}
	e.destroyed = true
}

// Close releases the engine via Destroy. It implements io.Closer so an
// engine can be scoped with defer; the returned error is always nil.
func (e *Engine) Close() error {
	e.Destroy()
	return nil
}

// randomBuffer returns a tracked buffer filled from the system CSPRNG.
func (e *Engine) randomBuffer(size int) ([]byte, error) {
	b, err := e.newTempBuffer(size)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("%w: random source: %v", ErrCrypto, err)
	}
	return b, nil
}

// newAEAD builds the AES-256-GCM cipher for one derived key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: cipher init: %v", ErrCrypto, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: GCM init: %v", ErrCrypto, err)
	}
	return aead, nil
}
