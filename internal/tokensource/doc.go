// Package tokensource keeps a Fitbit OAuth2 access/refresh token pair valid
// across unattended runs.
//
// The Manager hands out a bearer token per the credential lifecycle:
//   - a cached access token that has not expired is returned without any
//     network call
//   - an expired token is renewed via the refresh-token grant
//   - with no usable refresh token (true first run, or a refresh rejected by
//     the authorization server) it falls back to the password grant
//
// Rotated tokens are persisted back to the credential store together with
// their expiry in a single atomic write. Token exchanges authenticate with
// HTTP Basic client_id:client_secret per standard OAuth2 conventions.
//
// Expiry uses a strict comparison: a token expiring exactly now is treated
// as expired. Clock skew between this process and the authorization server
// is not compensated; expiry is computed from the server-reported lifetime
// against the local clock at response time.
//
// # Token Sources
//
//	mgr := tokensource.NewManager(store)
//	token, err := mgr.Token(ctx)
//	// or plug into an http.Client:
//	client := &http.Client{Transport: &oauth2.Transport{Source: mgr.TokenSource(ctx)}}
package tokensource
