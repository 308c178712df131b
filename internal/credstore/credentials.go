package credstore

import (
	"fmt"
	"strings"
	"time"
)

// Credential file keys. The file format is one KEY="value" pair per line.
const (
	KeyUsername     = "CLIENT_USERNAME"
	KeyPassword     = "CLIENT_PASSWORD"
	KeyClientID     = "CLIENT_ID"
	KeyClientSecret = "CLIENT_SECRET"
	KeyAccessToken  = "ACCESS_TOKEN"
	KeyRefreshToken = "REFRESH_TOKEN"
	KeyExpiresAt    = "EXPIRES_AT"
)

// Credentials is the single credential set for one Fitbit account.
//
// Username, Password, ClientID and ClientSecret are operator-supplied and
// never rewritten by the system. AccessToken, RefreshToken and ExpiresAt are
// absent on first run and rotated together by the token manager.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string

	AccessToken  string
	RefreshToken string
	// ExpiresAt is the absolute Unix timestamp (seconds) after which
	// AccessToken must be considered invalid.
	ExpiresAt int64
}

// HasAccessToken reports whether an access token is stored.
func (c *Credentials) HasAccessToken() bool {
	return c.AccessToken != ""
}

// HasRefreshToken reports whether a refresh token is stored.
func (c *Credentials) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Valid reports whether the stored access token is still usable at now.
// A token expiring exactly at now counts as expired.
func (c *Credentials) Valid(now time.Time) bool {
	return c.AccessToken != "" && c.ExpiresAt > now.Unix()
}

// MissingFields returns the required fields that are absent. Username,
// client id and client secret are always required; the password only until
// a refresh token exists.
func (c *Credentials) MissingFields() []string {
	var missing []string
	if c.Username == "" {
		missing = append(missing, KeyUsername)
	}
	if c.ClientID == "" {
		missing = append(missing, KeyClientID)
	}
	if c.ClientSecret == "" {
		missing = append(missing, KeyClientSecret)
	}
	if c.Password == "" && !c.HasRefreshToken() {
		missing = append(missing, KeyPassword)
	}
	return missing
}

// Validate returns a *MissingFieldError if required fields are absent.
func (c *Credentials) Validate() error {
	if missing := c.MissingFields(); len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// MissingFieldError reports required credential fields absent at load time.
// Not recoverable: the operator must supply the fields.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required credential fields: %s", strings.Join(e.Fields, ", "))
}
