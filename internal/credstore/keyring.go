package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringRecord is the JSON encoding of the credential set in the keyring.
// Omitted fields stay absent across a round trip.
type keyringRecord struct {
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// KeyringStore persists the credential set as a single JSON record in the
// OS-native credential storage (macOS Keychain, Windows Credential Manager,
// Linux Secret Service). The backend write is a single transactional set.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore using the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Load returns the credential set from the system keyring. A missing entry
// yields an empty credential set (true first run).
func (k *KeyringStore) Load(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return &Credentials{}, nil
		}
		return nil, err
	}

	var record keyringRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("corrupt keyring entry for service %s, user %s: %w", k.service, k.user, err)
	}

	return &Credentials{
		Username:     record.Username,
		Password:     record.Password,
		ClientID:     record.ClientID,
		ClientSecret: record.ClientSecret,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

// Save persists the credential set to the system keyring, overwriting any
// existing entry in one set operation.
func (k *KeyringStore) Save(ctx context.Context, creds *Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(keyringRecord{
		Username:     creds.Username,
		Password:     creds.Password,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encoding keyring entry: %w", err)
	}

	return keyring.Set(k.service, k.user, string(raw))
}
