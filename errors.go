package crypto

import "errors"

var (
	// ErrConfiguration is returned by New when the master key configuration
	// is missing, not valid base64, or does not decode to 32 bytes.
	ErrConfiguration = errors.New("crypto: invalid master key configuration")

	// ErrCrypto is returned when an envelope is malformed, its authentication
	// tag does not verify (tampered data or wrong key), or an underlying
	// primitive fails.
	ErrCrypto = errors.New("crypto: cryptographic operation failed")

	// ErrDestroyed is returned for any operation attempted after Destroy.
	ErrDestroyed = errors.New("crypto: engine destroyed")
)

// IsConfigurationError returns true if the error is or wraps ErrConfiguration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsCryptoError returns true if the error is or wraps ErrCrypto.
func IsCryptoError(err error) bool {
	return errors.Is(err, ErrCrypto)
}

// IsLifecycleError returns true if the error is or wraps ErrDestroyed.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrDestroyed)
}
