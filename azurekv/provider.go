// Package azurekv resolves engine master keys through Azure Key Vault.
//
// Key material previously wrapped with WrapKey is unwrapped via the UnwrapKey
// operation at construction time and exposed as a crypto.ConfigProvider
// holding the base64 value each engine expects under its
// "{SOURCE}_ENCRYPTION_KEY" name.
//
// Usage:
//
//	cred, err := azidentity.NewDefaultAzureCredential(nil)
//	client, err := azkeys.NewClient("https://my-vault.vault.azure.net/", cred, nil)
//
//	provider, err := azurekv.New(ctx, client,
//	    azurekv.WithWrappedKey(wrappedKeyBytes, "strava", "my-key-name", "key-version"),
//	)
//	engine, err := crypto.New("strava", provider)
package azurekv

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	crypto "github.com/stravaconnect/token-crypto"
)

// Client is the subset of the Azure Key Vault API used by this provider.
type Client interface {
	UnwrapKey(ctx context.Context, keyName string, keyVersion string, parameters azkeys.KeyOperationParameters, options *azkeys.UnwrapKeyOptions) (azkeys.UnwrapKeyResponse, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	wrappedKeys []wrappedKeyEntry
}

type wrappedKeyEntry struct {
	ciphertext []byte
	source     string
	keyName    string
	keyVersion string
	algorithm  azkeys.EncryptionAlgorithm
}

// WithWrappedKey adds a wrapped master key for the given credential source.
// The keyName and keyVersion identify the Key Vault key used for wrapping;
// the unwrapped material must be 32 bytes. Uses RSA-OAEP-256 by default.
func WithWrappedKey(ciphertext []byte, source, keyName, keyVersion string) Option {
	return func(o *options) {
		o.wrappedKeys = append(o.wrappedKeys, wrappedKeyEntry{
			ciphertext: ciphertext,
			source:     source,
			keyName:    keyName,
			keyVersion: keyVersion,
			algorithm:  azkeys.EncryptionAlgorithmRSAOAEP256,
		})
	}
}

// WithWrappedKeyAlgorithm is like WithWrappedKey but allows specifying the
// unwrap algorithm.
func WithWrappedKeyAlgorithm(ciphertext []byte, source, keyName, keyVersion string, alg azkeys.EncryptionAlgorithm) Option {
	return func(o *options) {
		o.wrappedKeys = append(o.wrappedKeys, wrappedKeyEntry{
			ciphertext: ciphertext,
			source:     source,
			keyName:    keyName,
			keyVersion: keyVersion,
			algorithm:  alg,
		})
	}
}

// New unwraps every configured key using Azure Key Vault and returns a
// ConfigProvider with each key stored base64-encoded under
// crypto.ConfigKeyName(source).
//
// At least one key must be provided via WithWrappedKey or
// WithWrappedKeyAlgorithm. The Key Vault client is not retained after
// construction, and the unwrapped key bytes are zeroed once encoded.
func New(ctx context.Context, client Client, opts ...Option) (*crypto.StaticConfig, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.wrappedKeys) == 0 {
		return nil, fmt.Errorf("azurekv: at least one wrapped key is required")
	}

	cfg := crypto.NewStaticConfig(nil)
	for _, wk := range o.wrappedKeys {
		resp, err := client.UnwrapKey(ctx, wk.keyName, wk.keyVersion, azkeys.KeyOperationParameters{
			Algorithm: &wk.algorithm,
			Value:     wk.ciphertext,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("azurekv: failed to unwrap key for %q: %w", wk.source, err)
		}
		if len(resp.Result) != 32 {
			clear(resp.Result)
			return nil, fmt.Errorf("azurekv: key for %q must unwrap to 32 bytes, got %d",
				wk.source, len(resp.Result))
		}

		cfg.Set(crypto.ConfigKeyName(wk.source), base64.StdEncoding.EncodeToString(resp.Result))
		clear(resp.Result)
	}

	return cfg, nil
}
