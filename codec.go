package crypto

import (
	"fmt"

	"github.com/rbaliyan/config/codec"
)

// Codec wraps an inner codec with envelope encryption through an Engine.
// On Encode, the inner codec serializes the value, then the result is sealed.
// On Decode, the envelope is opened, then the inner codec deserializes the
// plaintext. This lets a host application keep structured credentials
// (token bundles, sheet references) in any config store as opaque envelopes.
//
// Operations on the engine are serialized internally, so the codec is safe
// for concurrent use until the engine is destroyed.
type Codec struct {
	inner  codec.Codec
	engine *Engine
	name   string
}

// Compile-time interface check.
var _ codec.Codec = (*Codec)(nil)

// NewCodec creates a sealing codec that wraps the given inner codec.
// The codec name is "sealed:<inner>", e.g. "sealed:json".
// Returns an error if inner or engine is nil.
func NewCodec(inner codec.Codec, engine *Engine) (*Codec, error) {
	if inner == nil {
		return nil, fmt.Errorf("crypto: NewCodec inner codec is nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("crypto: NewCodec engine is nil")
	}
	return &Codec{
		inner:  inner,
		engine: engine,
		name:   "sealed:" + inner.Name(),
	}, nil
}

// Name returns the codec name, e.g. "sealed:json".
func (c *Codec) Name() string {
	return c.name
}

// Encode serializes the value using the inner codec, then seals the result.
func (c *Codec) Encode(v any) ([]byte, error) {
	plaintext, err := c.inner.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("crypto: inner encode failed: %w", err)
	}

	env, err := c.engine.Encrypt(string(plaintext))
	if err != nil {
		return nil, err
	}
	return []byte(env), nil
}

// Decode opens the envelope, then deserializes the plaintext using the
// inner codec.
func (c *Codec) Decode(data []byte, v any) error {
	plaintext, err := c.engine.Decrypt(string(data))
	if err != nil {
		return err
	}

	if err := c.inner.Decode([]byte(plaintext), v); err != nil {
		return fmt.Errorf("crypto: inner decode failed: %w", err)
	}
	return nil
}
