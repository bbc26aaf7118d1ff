// Package awskms resolves engine master keys through AWS KMS.
//
// Encrypted key material (the output of KMS Encrypt or GenerateDataKey) is
// unwrapped via KMS Decrypt at construction time and exposed as a
// crypto.ConfigProvider holding the base64 value each engine expects under
// its "{SOURCE}_ENCRYPTION_KEY" name.
//
// Usage:
//
//	cfg, err := awsconfig.LoadDefaultConfig(ctx)
//	kmsClient := kms.NewFromConfig(cfg)
//
//	provider, err := awskms.New(ctx, kmsClient,
//	    awskms.WithEncryptedKey(encryptedKeyBytes, "strava"),
//	)
//	engine, err := crypto.New("strava", provider)
package awskms

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	crypto "github.com/stravaconnect/token-crypto"
)

// Client is the subset of the AWS KMS API used by this provider.
type Client interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	encryptedKeys []encryptedKeyEntry
}

type encryptedKeyEntry struct {
	ciphertext []byte
	source     string
	kmsKeyID   string // KMS key ARN or alias; empty = let KMS determine
}

// WithEncryptedKey adds an encrypted master key for the given credential
// source. The ciphertext should be the output of KMS Encrypt or
// GenerateDataKey and must unwrap to 32 bytes.
func WithEncryptedKey(ciphertext []byte, source string) Option {
	return func(o *options) {
		o.encryptedKeys = append(o.encryptedKeys, encryptedKeyEntry{
			ciphertext: ciphertext,
			source:     source,
		})
	}
}

// WithEncryptedKeyForKMSKey is like WithEncryptedKey but specifies the KMS
// key ARN or alias to use for decryption. Use this when the ciphertext was
// encrypted with a specific KMS key.
func WithEncryptedKeyForKMSKey(ciphertext []byte, source, kmsKeyID string) Option {
	return func(o *options) {
		o.encryptedKeys = append(o.encryptedKeys, encryptedKeyEntry{
			ciphertext: ciphertext,
			source:     source,
			kmsKeyID:   kmsKeyID,
		})
	}
}

// New unwraps every configured key using AWS KMS and returns a ConfigProvider
// with each key stored base64-encoded under crypto.ConfigKeyName(source).
//
// At least one key must be provided via WithEncryptedKey or
// WithEncryptedKeyForKMSKey. The KMS client is not retained after
// construction, and the unwrapped key bytes are zeroed once encoded.
func New(ctx context.Context, client Client, opts ...Option) (*crypto.StaticConfig, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.encryptedKeys) == 0 {
		return nil, fmt.Errorf("awskms: at least one encrypted key is required")
	}

	cfg := crypto.NewStaticConfig(nil)
	for _, ek := range o.encryptedKeys {
		input := &kms.DecryptInput{
			CiphertextBlob: ek.ciphertext,
		}
		if ek.kmsKeyID != "" {
			input.KeyId = &ek.kmsKeyID
		}

		out, err := client.Decrypt(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("awskms: failed to decrypt key for %q: %w", ek.source, err)
		}
		if len(out.Plaintext) != 32 {
			clear(out.Plaintext)
			return nil, fmt.Errorf("awskms: key for %q must unwrap to 32 bytes, got %d",
				ek.source, len(out.Plaintext))
		}

		cfg.Set(crypto.ConfigKeyName(ek.source), base64.StdEncoding.EncodeToString(out.Plaintext))
		clear(out.Plaintext)
	}

	return cfg, nil
}
