package credstore

import (
	"errors"
	"testing"
	"time"
)

func TestCredentialsValid(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		now   int64
		want  bool
	}{
		{
			name:  "token with future expiry",
			creds: Credentials{AccessToken: "tok1", ExpiresAt: 500},
			now:   300,
			want:  true,
		},
		{
			name:  "token expired",
			creds: Credentials{AccessToken: "tok1", ExpiresAt: 100},
			now:   200,
			want:  false,
		},
		{
			name:  "token expiring exactly now counts as expired",
			creds: Credentials{AccessToken: "tok1", ExpiresAt: 200},
			now:   200,
			want:  false,
		},
		{
			name:  "no token",
			creds: Credentials{ExpiresAt: 500},
			now:   300,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Valid(time.Unix(tt.now, 0)); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name        string
		creds       Credentials
		wantMissing []string
	}{
		{
			name: "complete set",
			creds: Credentials{
				Username: "jeremy", Password: "hunter2",
				ClientID: "22BXYZ", ClientSecret: "s3cret",
			},
		},
		{
			name: "password optional once refresh token exists",
			creds: Credentials{
				Username: "jeremy",
				ClientID: "22BXYZ", ClientSecret: "s3cret",
				RefreshToken: "abc",
			},
		},
		{
			name: "password required without refresh token",
			creds: Credentials{
				Username: "jeremy",
				ClientID: "22BXYZ", ClientSecret: "s3cret",
			},
			wantMissing: []string{KeyPassword},
		},
		{
			name:  "everything missing",
			creds: Credentials{},
			wantMissing: []string{
				KeyUsername, KeyClientID, KeyClientSecret, KeyPassword,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var missingErr *MissingFieldError
			if !errors.As(err, &missingErr) {
				t.Fatalf("Validate() = %v, want *MissingFieldError", err)
			}
			if len(missingErr.Fields) != len(tt.wantMissing) {
				t.Fatalf("missing fields = %v, want %v", missingErr.Fields, tt.wantMissing)
			}
			for i, field := range tt.wantMissing {
				if missingErr.Fields[i] != field {
					t.Errorf("missing field %d = %q, want %q", i, missingErr.Fields[i], field)
				}
			}
		})
	}
}
