package tokensource

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Grant names the OAuth2 exchange a token-endpoint error belongs to.
type Grant string

const (
	GrantRefreshToken Grant = "refresh_token"
	GrantPassword     Grant = "password"
)

// AuthorizationError reports that the authorization server rejected the
// submitted credentials (bad password, revoked or expired refresh token,
// invalid client secret). A rejected refresh grant triggers the one designed
// fallback to the password grant; any other occurrence is fatal.
type AuthorizationError struct {
	Grant      Grant
	StatusCode int
	// Code is the OAuth2 error code from the response body (e.g.
	// "invalid_grant"), empty if the server returned none.
	Code string
	err  error
}

func (e *AuthorizationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s grant rejected by authorization server: %s (HTTP %d)", e.Grant, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s grant rejected by authorization server (HTTP %d)", e.Grant, e.StatusCode)
}

func (e *AuthorizationError) Unwrap() error { return e.err }

// TransientError reports a timeout, connection failure, 5xx response or
// malformed token response. Never retried within the run: scheduled reruns
// provide the retry cadence.
type TransientError struct {
	Grant Grant
	err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s grant failed: %v", e.Grant, e.err)
}

func (e *TransientError) Unwrap() error { return e.err }

// PersistenceError reports that rotated credentials could not be written to
// the store. The in-memory token is still usable for the current run, but
// the next run will re-authenticate unnecessarily unless the operator fixes
// the store.
type PersistenceError struct {
	err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting rotated credentials: %v", e.err)
}

func (e *PersistenceError) Unwrap() error { return e.err }

// classifyGrantError maps a token-endpoint failure to the error taxonomy.
// 4xx responses mean the server understood and rejected the credentials;
// everything else (network failure, 5xx, unparseable body) is transient.
func classifyGrantError(grant Grant, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			return &AuthorizationError{
				Grant:      grant,
				StatusCode: status,
				Code:       retrieveErr.ErrorCode,
				err:        err,
			}
		}
	}
	return &TransientError{Grant: grant, err: err}
}
