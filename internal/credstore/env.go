package credstore

import (
	"context"
	"os"
)

// DefaultEnvPrefix is the prefix for credential environment variables
// (e.g. FITBIT_CLIENT_ID).
const DefaultEnvPrefix = "FITBIT_"

// EnvOverlay wraps a Store and fills operator-supplied fields that are
// absent from the underlying store from environment variables. Rotated
// fields (tokens, expiry) are never taken from the environment, and Save
// delegates unchanged, so secrets injected by a scheduler stay out of the
// persisted file.
type EnvOverlay struct {
	store     Store
	prefix    string
	lookupEnv func(string) (string, bool)
}

// Compile-time check to ensure EnvOverlay implements Store
var _ Store = (*EnvOverlay)(nil)

// NewEnvOverlay wraps store with environment fallback for the immutable
// credential fields. Prefix defaults to DefaultEnvPrefix when empty.
func NewEnvOverlay(store Store, prefix string) *EnvOverlay {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvOverlay{
		store:     store,
		prefix:    prefix,
		lookupEnv: os.LookupEnv,
	}
}

// Load returns the stored credential set with absent immutable fields
// filled from <prefix><KEY> environment variables. Unset variables are
// treated as absent, not as empty string.
func (e *EnvOverlay) Load(ctx context.Context) (*Credentials, error) {
	creds, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	e.fill(&creds.Username, KeyUsername)
	e.fill(&creds.Password, KeyPassword)
	e.fill(&creds.ClientID, KeyClientID)
	e.fill(&creds.ClientSecret, KeyClientSecret)

	return creds, nil
}

// Save delegates to the wrapped store.
func (e *EnvOverlay) Save(ctx context.Context, creds *Credentials) error {
	return e.store.Save(ctx, creds)
}

func (e *EnvOverlay) fill(field *string, key string) {
	if *field != "" {
		return
	}
	if value, ok := e.lookupEnv(e.prefix + key); ok && value != "" {
		*field = value
	}
}
