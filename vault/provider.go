// Package vault resolves engine master keys through the HashiCorp Vault
// Transit secrets engine.
//
// Key material previously encrypted via the Transit encrypt endpoint is
// decrypted at construction time and exposed as a crypto.ConfigProvider
// holding the base64 value each engine expects under its
// "{SOURCE}_ENCRYPTION_KEY" name.
//
// Usage:
//
//	client := vault.NewClient("https://vault.example.com:8200", "hvs.token123")
//	provider, err := vault.New(ctx, client,
//	    vault.WithEncryptedKey(ciphertext, "strava", "my-transit-key"),
//	)
//	engine, err := crypto.New("strava", provider)
package vault

import (
	"context"
	"encoding/base64"
	"fmt"

	crypto "github.com/stravaconnect/token-crypto"
)

// Client abstracts the Vault Transit decrypt operation.
// This allows injecting a mock for testing or wrapping any Vault client library.
type Client interface {
	// TransitDecrypt decrypts ciphertext using the named Transit key.
	// The ciphertext should be in Vault's format (e.g., "vault:v1:base64data").
	// Returns the plaintext bytes.
	TransitDecrypt(ctx context.Context, keyName string, ciphertext string) ([]byte, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	encryptedKeys []encryptedKeyEntry
}

type encryptedKeyEntry struct {
	ciphertext     string // Vault Transit ciphertext (e.g., "vault:v1:...")
	source         string
	transitKeyName string
}

// WithEncryptedKey adds a Transit-encrypted master key for the given
// credential source. The transitKeyName is the name of the Transit key in
// Vault; the decrypted material must be 32 bytes.
func WithEncryptedKey(ciphertext string, source, transitKeyName string) Option {
	return func(o *options) {
		o.encryptedKeys = append(o.encryptedKeys, encryptedKeyEntry{
			ciphertext:     ciphertext,
			source:         source,
			transitKeyName: transitKeyName,
		})
	}
}

// New decrypts every configured key using the Vault Transit engine and
// returns a ConfigProvider with each key stored base64-encoded under
// crypto.ConfigKeyName(source).
//
// At least one key must be provided via WithEncryptedKey. The Vault client
// is not retained after construction, and the decrypted key bytes are zeroed
// once encoded.
func New(ctx context.Context, client Client, opts ...Option) (*crypto.StaticConfig, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.encryptedKeys) == 0 {
		return nil, fmt.Errorf("vault: at least one encrypted key is required")
	}

	cfg := crypto.NewStaticConfig(nil)
	for _, ek := range o.encryptedKeys {
		plaintext, err := client.TransitDecrypt(ctx, ek.transitKeyName, ek.ciphertext)
		if err != nil {
			return nil, fmt.Errorf("vault: failed to decrypt key for %q: %w", ek.source, err)
		}
		if len(plaintext) != 32 {
			clear(plaintext)
			return nil, fmt.Errorf("vault: key for %q must decrypt to 32 bytes, got %d",
				ek.source, len(plaintext))
		}

		cfg.Set(crypto.ConfigKeyName(ek.source), base64.StdEncoding.EncodeToString(plaintext))
		clear(plaintext)
	}

	return cfg, nil
}
