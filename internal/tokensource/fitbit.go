package tokensource

import (
	"golang.org/x/oauth2"
)

// Endpoint defines the OAuth2 endpoints for the Fitbit Web API.
// Token requests authenticate with HTTP Basic client_id:client_secret
// per RFC 6749 section 2.3.1.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.fitbit.com/oauth2/authorize",
	TokenURL:  "https://api.fitbit.com/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// Scopes defines the OAuth scopes requested during initial authentication.
var Scopes = []string{"activity", "heartrate", "profile", "sleep"}
