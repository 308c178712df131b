package tokensource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrg94/fitbit-backup/internal/credstore"
)

// defaultTimeout bounds every token-endpoint exchange so an unresponsive
// authorization server cannot block a scheduled run indefinitely.
const defaultTimeout = 30 * time.Second

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEndpoint overrides the Fitbit OAuth2 endpoint (e.g. for tests).
func WithEndpoint(endpoint oauth2.Endpoint) ManagerOption {
	return func(m *Manager) {
		m.endpoint = endpoint
	}
}

// WithTransport sets a custom base transport for token-endpoint requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) ManagerOption {
	return func(m *Manager) {
		m.httpClient.Transport = transport
	}
}

// WithClock overrides the time source used for expiry checks (for tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager decides, on each Token call, whether the cached access token is
// still usable, refreshes it via the refresh-token grant when expired, falls
// back to password authentication when no usable refresh token exists, and
// persists rotated credentials back to the store.
//
// Exactly one credential set is active per Manager; it is loaded from the
// store on first use and cached for the life of the process. Concurrent
// Token calls are serialized, but the store itself has no locking
// discipline: overlapping process invocations must be serialized externally.
type Manager struct {
	store    credstore.Store
	endpoint oauth2.Endpoint
	scopes   []string

	httpClient *http.Client
	now        func() time.Time

	mu         sync.Mutex
	creds      *credstore.Credentials
	persistErr error
}

// NewManager creates a Manager backed by the given credential store.
// No I/O is performed until the first Token call.
func NewManager(store credstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		endpoint: Endpoint,
		scopes:   Scopes,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid bearer token for the Fitbit API.
//
// The fast path (stored token not yet expired) performs no network call and
// no write. Otherwise at most two token-endpoint exchanges are made: a
// refresh grant, plus the password-grant fallback if the refresh token was
// rejected. Rotated credentials are persisted before returning; a
// persistence failure is logged and recorded (see PersistenceFailure) but
// does not invalidate the freshly issued token for this run.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		creds, err := m.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		// Required fields are checked before any network I/O
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		m.creds = creds
	}

	now := m.now()
	if m.creds.Valid(now) {
		return bearerToken(m.creds), nil
	}

	conf := &oauth2.Config{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
		Scopes:       m.scopes,
		Endpoint:     m.endpoint,
	}
	// The oauth2 package picks up the bounded HTTP client via context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	token, err := m.exchange(ctx, conf)
	if err != nil {
		return nil, err
	}

	rotated := *m.creds
	rotated.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		rotated.RefreshToken = token.RefreshToken
	}
	rotated.ExpiresAt = expiryUnix(token, now)

	// Token, refresh token and expiry land in the store in one atomic write
	if err := m.store.Save(ctx, &rotated); err != nil {
		m.persistErr = &PersistenceError{err: err}
		slog.ErrorContext(ctx, "failed to persist rotated credentials", "error", err)
	}
	// The in-memory set is authoritative for the rest of the run either way
	m.creds = &rotated

	return bearerToken(&rotated), nil
}

// exchange runs the refresh-or-authenticate state machine: TryRefresh, then
// on AuthorizationError TryPasswordAuth. Any other failure propagates.
func (m *Manager) exchange(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	if !m.creds.HasRefreshToken() {
		return m.passwordGrant(ctx, conf)
	}

	token, err := m.refreshGrant(ctx, conf)
	if err == nil {
		return token, nil
	}

	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		return nil, err
	}

	// Refresh token revoked or expired: self-heal by re-authenticating
	// from the password credentials.
	slog.WarnContext(ctx, "refresh token rejected, re-authenticating",
		"status", authErr.StatusCode, "code", authErr.Code)
	if m.creds.Password == "" {
		return nil, fmt.Errorf("no password stored to re-authenticate: %w", err)
	}
	return m.passwordGrant(ctx, conf)
}

func (m *Manager) refreshGrant(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	// Seeding only the refresh token forces an immediate refresh exchange
	seed := &oauth2.Token{RefreshToken: m.creds.RefreshToken}
	token, err := conf.TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, classifyGrantError(GrantRefreshToken, err)
	}
	slog.DebugContext(ctx, "access token refreshed")
	return token, nil
}

func (m *Manager) passwordGrant(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	token, err := conf.PasswordCredentialsToken(ctx, m.creds.Username, m.creds.Password)
	if err != nil {
		return nil, classifyGrantError(GrantPassword, err)
	}
	slog.InfoContext(ctx, "authenticated with password credentials")
	return token, nil
}

// PersistenceFailure returns the recorded *PersistenceError if a rotation
// could not be written to the store, nil otherwise. Callers should surface
// it as the run's failure after finishing their work with the still-valid
// in-memory token.
func (m *Manager) PersistenceFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistErr
}

// AccessToken returns just the bearer token string.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// TokenSource adapts the Manager to oauth2.TokenSource for use with
// oauth2.Transport. The context is captured at construction because the
// oauth2.TokenSource interface has no context parameter.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &contextTokenSource{ctx: ctx, manager: m}
}

type contextTokenSource struct {
	ctx     context.Context
	manager *Manager
}

// Compile-time check that contextTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*contextTokenSource)(nil)

func (ts *contextTokenSource) Token() (*oauth2.Token, error) {
	return ts.manager.Token(ts.ctx)
}

// bearerToken converts stored credentials into an oauth2.Token.
func bearerToken(creds *credstore.Credentials) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Unix(creds.ExpiresAt, 0),
	}
}

// expiryUnix computes the absolute expiry from the server-reported lifetime,
// anchored on the expiry check's clock so the stored value is never stale.
// Falls back to the expiry the oauth2 package computed.
func expiryUnix(token *oauth2.Token, now time.Time) int64 {
	if lifetime, ok := token.Extra("expires_in").(float64); ok && lifetime > 0 {
		return now.Unix() + int64(lifetime)
	}
	if !token.Expiry.IsZero() {
		return token.Expiry.Unix()
	}
	return 0
}
