package credstore

import "context"

// Store reads and writes the credential set to persistent storage.
//
// Save must be atomic with respect to process crash: a partially written
// credential set must never be observable by a subsequent Load. Stores do not
// validate field presence; callers validate via Credentials.Validate so that
// overlays can fill fields first.
type Store interface {
	// Load returns the stored credential set. Absent optional fields are
	// zero values, never empty-but-present.
	Load(ctx context.Context) (*Credentials, error)

	// Save persists the full credential set in a single atomic write.
	Save(ctx context.Context, creds *Credentials) error
}
