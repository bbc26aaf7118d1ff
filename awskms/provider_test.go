package awskms

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	crypto "github.com/stravaconnect/token-crypto"
)

// mockClient implements Client for testing.
type mockClient struct {
	keys   map[string][]byte // ciphertext -> plaintext
	failOn string            // ciphertext string to fail on
}

func (m *mockClient) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	ct := string(params.CiphertextBlob)
	if ct == m.failOn {
		return nil, fmt.Errorf("kms: access denied")
	}
	plaintext, ok := m.keys[ct]
	if !ok {
		return nil, fmt.Errorf("kms: invalid ciphertext")
	}
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return &kms.DecryptOutput{Plaintext: out}, nil
}

func makeKey(size int) []byte {
	key := make([]byte, size)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNew(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			"encrypted-strava-key": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("encrypted-strava-key"), "strava"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, ok := provider.Lookup(crypto.ConfigKeyName("strava"))
	if !ok {
		t.Fatal("STRAVA_ENCRYPTION_KEY not set on provider")
	}
	want := base64.StdEncoding.EncodeToString(makeKey(32))
	if got != want {
		t.Errorf("Lookup: got %q, want %q", got, want)
	}
}

func TestNewMultipleSources(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			"ct-strava": makeKey(32),
			"ct-sheets": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-strava"), "strava"),
		WithEncryptedKey([]byte("ct-sheets"), "sheets"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, source := range []string{"strava", "sheets"} {
		if _, ok := provider.Lookup(crypto.ConfigKeyName(source)); !ok {
			t.Errorf("key for %q not set", source)
		}
	}
}

func TestNewWithKMSKeyID(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			"ct-1": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKeyForKMSKey([]byte("ct-1"), "strava", "arn:aws:kms:us-east-1:123:key/abc"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := provider.Lookup(crypto.ConfigKeyName("strava")); !ok {
		t.Error("key not set")
	}
}

func TestNewNoKeys(t *testing.T) {
	if _, err := New(context.Background(), &mockClient{}); err == nil {
		t.Error("expected error when no keys are configured")
	}
}

func TestNewDecryptFailure(t *testing.T) {
	client := &mockClient{
		keys:   map[string][]byte{"ct-ok": makeKey(32)},
		failOn: "ct-denied",
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-ok"), "strava"),
		WithEncryptedKey([]byte("ct-denied"), "sheets"),
	)
	if err == nil {
		t.Error("expected error when KMS decryption fails")
	}
}

func TestNewWrongKeySize(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			"ct-short": makeKey(16),
		},
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-short"), "strava"),
	)
	if err == nil {
		t.Error("expected error for a key that does not unwrap to 32 bytes")
	}
}

func TestNewFeedsEngine(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			"ct-strava": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-strava"), "strava"),
	)
	if err != nil {
		t.Fatal(err)
	}

	engine, err := crypto.New("strava", provider, crypto.WithIterations(1000))
	if err != nil {
		t.Fatalf("crypto.New: %v", err)
	}
	defer engine.Close()

	env, err := engine.Encrypt("refresh-token")
	if err != nil {
		t.Fatal(err)
	}
	got, err := engine.Decrypt(env)
	if err != nil || got != "refresh-token" {
		t.Errorf("round trip: got %q, %v", got, err)
	}
}
