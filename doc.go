// Package crypto implements secure-envelope encryption for long-lived
// credentials: OAuth refresh tokens, spreadsheet IDs, third-party API keys
// and similar values that are persisted outside memory and decrypted only
// momentarily before use.
//
// An Engine is bound to one credential source and one 32-byte master key,
// resolved once at construction from a ConfigProvider under the conventional
// name "{SOURCE}_ENCRYPTION_KEY" (base64-encoded). Every Encrypt call derives
// a fresh key from the master key via PBKDF2-SHA256 over a random salt, seals
// the plaintext with AES-256-GCM under a random IV, and returns the base64
// envelope
//
//	salt(32) || iv(12) || tag(16) || ciphertext
//
// Decrypt reverses the process and fails rather than return data whose
// authentication tag does not verify. The envelope layout is the library's
// wire contract: any conforming implementation can decrypt another's output.
//
// The master key lives in a memguard locked buffer for the engine's lifetime,
// and every ephemeral buffer an operation allocates (salt, IV, plaintext
// copy, derived key, decrypted output) is tracked and zeroed on completion,
// on error, and on Destroy. Engines are meant to be short-lived: construct
// one immediately before use and release it right after.
//
//	cfg, err := crypto.Env()
//	if err != nil {
//		return err
//	}
//	engine, err := crypto.New("strava", cfg)
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	sealed, err := engine.Encrypt(refreshToken)
//
// Destroy is terminal: after it, every operation fails with ErrDestroyed.
package crypto
