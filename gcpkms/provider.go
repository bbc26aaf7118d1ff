// Package gcpkms resolves engine master keys through Google Cloud KMS.
//
// Key material previously encrypted against a Cloud KMS key is decrypted at
// construction time and exposed as a crypto.ConfigProvider holding the
// base64 value each engine expects under its "{SOURCE}_ENCRYPTION_KEY" name.
//
// Usage:
//
//	client, err := kms.NewKeyManagementClient(ctx)
//
//	provider, err := gcpkms.New(ctx, client,
//	    gcpkms.WithEncryptedKey(ciphertext, "strava",
//	        "projects/p/locations/l/keyRings/r/cryptoKeys/k"),
//	)
//	engine, err := crypto.New("strava", provider)
package gcpkms

import (
	"context"
	"encoding/base64"
	"fmt"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	crypto "github.com/stravaconnect/token-crypto"
)

// Client is the subset of the Cloud KMS API used by this provider.
// *kms.KeyManagementClient satisfies it after a thin adapter dropping the
// variadic call options, or directly via a small wrapper in the caller.
type Client interface {
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	encryptedKeys []encryptedKeyEntry
}

type encryptedKeyEntry struct {
	ciphertext   []byte
	source       string
	resourceName string
}

// WithEncryptedKey adds a Cloud KMS encrypted master key for the given
// credential source. The resourceName is the full CryptoKey resource name
// the ciphertext was encrypted against; the decrypted material must be
// 32 bytes.
func WithEncryptedKey(ciphertext []byte, source, resourceName string) Option {
	return func(o *options) {
		o.encryptedKeys = append(o.encryptedKeys, encryptedKeyEntry{
			ciphertext:   ciphertext,
			source:       source,
			resourceName: resourceName,
		})
	}
}

// New decrypts every configured key using Cloud KMS and returns a
// ConfigProvider with each key stored base64-encoded under
// crypto.ConfigKeyName(source).
//
// At least one key must be provided via WithEncryptedKey. The KMS client is
// not retained after construction, and the decrypted key bytes are zeroed
// once encoded.
func New(ctx context.Context, client Client, opts ...Option) (*crypto.StaticConfig, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.encryptedKeys) == 0 {
		return nil, fmt.Errorf("gcpkms: at least one encrypted key is required")
	}

	cfg := crypto.NewStaticConfig(nil)
	for _, ek := range o.encryptedKeys {
		resp, err := client.Decrypt(ctx, &kmspb.DecryptRequest{
			Name:       ek.resourceName,
			Ciphertext: ek.ciphertext,
		})
		if err != nil {
			return nil, fmt.Errorf("gcpkms: failed to decrypt key for %q: %w", ek.source, err)
		}
		if len(resp.Plaintext) != 32 {
			clear(resp.Plaintext)
			return nil, fmt.Errorf("gcpkms: key for %q must decrypt to 32 bytes, got %d",
				ek.source, len(resp.Plaintext))
		}

		cfg.Set(crypto.ConfigKeyName(ek.source), base64.StdEncoding.EncodeToString(resp.Plaintext))
		clear(resp.Plaintext)
	}

	return cfg, nil
}
