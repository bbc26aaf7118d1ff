package gcpkms

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	crypto "github.com/stravaconnect/token-crypto"
)

type mockClient struct {
	keys   map[string][]byte // "resourceName:ciphertext" -> plaintext
	failOn string
}

func (m *mockClient) Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
	lookup := req.Name + ":" + string(req.Ciphertext)
	if lookup == m.failOn {
		return nil, fmt.Errorf("kms: permission denied")
	}
	plaintext, ok := m.keys[lookup]
	if !ok {
		return nil, fmt.Errorf("kms: decryption failed")
	}
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return &kmspb.DecryptResponse{Plaintext: out}, nil
}

func makeKey(size int) []byte {
	key := make([]byte, size)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

const keyName = "projects/p/locations/l/keyRings/r/cryptoKeys/k"

func TestNew(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			keyName + ":ct-strava": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-strava"), "strava", keyName),
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
			keyName + ":ct-strava": makeKey(32),
			keyName + ":ct-sheets": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-strava"), "strava", keyName),
		WithEncryptedKey([]byte("ct-sheets"), "sheets", keyName),
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

func TestNewNoKeys(t *testing.T) {
	if _, err := New(context.Background(), &mockClient{}); err == nil {
		t.Error("expected error when no keys are configured")
	}
}

func TestNewDecryptFailure(t *testing.T) {
	client := &mockClient{
		keys:   map[string][]byte{keyName + ":ct-ok": makeKey(32)},
		failOn: keyName + ":ct-denied",
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-denied"), "strava", keyName),
	)
	if err == nil {
		t.Error("expected error when KMS decryption fails")
	}
}

func TestNewWrongKeySize(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			keyName + ":ct-short": makeKey(16),
		},
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-short"), "strava", keyName),
	)
	if err == nil {
		t.Error("expected error for a key that does not decrypt to 32 bytes")
	}
}

func TestNewFeedsEngine(t *testing.T) {
	client := &mockClient{
		keys: map[string][]byte{
			keyName + ":ct-strava": makeKey(32),
		},
	}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("ct-strava"), "strava", keyName),
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
