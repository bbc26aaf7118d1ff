package crypto

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// ConfigProvider resolves named configuration values such as
// "STRAVA_ENCRYPTION_KEY". Implementations must be safe for concurrent use.
type ConfigProvider interface {
	// Lookup returns the value for the given name and whether it was set.
	Lookup(name string) (string, bool)
}

// ConfigKeyName returns the conventional configuration name for a credential
// source's master key, e.g. "strava" -> "STRAVA_ENCRYPTION_KEY".
func ConfigKeyName(source string) string {
	return strings.ToUpper(source) + "_ENCRYPTION_KEY"
}

// EnvConfig is a ConfigProvider over the process environment, with an
// optional overlay loaded from dotenv files.
type EnvConfig struct {
	overlay map[string]string
}

// EnvOption configures an EnvConfig.
type EnvOption func(*envOptions)

type envOptions struct {
	dotenv []string
}

// WithDotEnv loads the given dotenv files into the provider's overlay.
// Overlay values take precedence over the process environment.
func WithDotEnv(paths ...string) EnvOption {
	return func(o *envOptions) {
		o.dotenv = append(o.dotenv, paths...)
	}
}

// Env returns a ConfigProvider backed by the process environment.
func Env(opts ...EnvOption) (*EnvConfig, error) {
	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &EnvConfig{}
	if len(o.dotenv) > 0 {
		overlay, err := godotenv.Read(o.dotenv...)
		if err != nil {
			return nil, fmt.Errorf("%w: dotenv: %v", ErrConfiguration, err)
		}
		c.overlay = overlay
	}
	return c, nil
}

// Lookup returns the overlay value if present, otherwise the environment value.
func (c *EnvConfig) Lookup(name string) (string, bool) {
	if v, ok := c.overlay[name]; ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// StaticConfig is a ConfigProvider backed by an in-memory map.
// It is safe for concurrent use.
type StaticConfig struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStaticConfig creates a StaticConfig with a copy of the given values.
// A nil map yields an empty provider that can be populated with Set.
func NewStaticConfig(values map[string]string) *StaticConfig {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &StaticConfig{values: m}
}

// Set stores a value under the given name, replacing any previous value.
func (c *StaticConfig) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Lookup returns the value for the given name and whether it was set.
func (c *StaticConfig) Lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Compile-time interface checks.
var (
	_ ConfigProvider = (*EnvConfig)(nil)
	_ ConfigProvider = (*StaticConfig)(nil)
)
