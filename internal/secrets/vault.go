// Package secrets holds credentials that can be reloaded while the service
// runs.
package secrets

import (
	"fmt"
	"sync"

	"github.com/Strob0t/bbwebhook/internal/config"
)

// Keys under which Bitbucket credentials are stored.
const (
	KeyBitbucketToken       = "BITBUCKET_TOKEN"
	KeyBitbucketUsername    = "BITBUCKET_USERNAME"
	KeyBitbucketAppPassword = "BITBUCKET_APP_PASSWORD" //nolint:gosec // G101: key name, not a secret
)

// Loader retrieves secrets from a source.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and swaps them atomically on reload.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Reload calls the loader and swaps in the new values.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}

// Redacted returns a masked form of the secret for logging: the first two
// characters followed by "****", or just "****" for values of four
// characters or fewer. Missing keys yield "".
func (v *Vault) Redacted(key string) string {
	val := v.Get(key)
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}

// BitbucketValues flattens the credential fields of b into vault entries.
// Empty fields are omitted.
func BitbucketValues(b config.Bitbucket) map[string]string {
	vals := make(map[string]string, 3)
	for k, v := range map[string]string{
		KeyBitbucketToken:       b.Token,
		KeyBitbucketUsername:    b.Username,
		KeyBitbucketAppPassword: b.AppPassword,
	} {
		if v != "" {
			vals[k] = v
		}
	}
	return vals
}

// BitbucketLoader returns a Loader that re-reads configuration through load
// and keeps only the Bitbucket credentials.
func BitbucketLoader(load func() (*config.Config, error)) Loader {
	return func() (map[string]string, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		return BitbucketValues(cfg.Bitbucket), nil
	}
}
