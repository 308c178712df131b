package credstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.env")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore(): %v", err)
	}
	return store, path
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	want := &Credentials{
		Username:     "jeremy",
		Password:     `pa"ss\word`,
		ClientID:     "22BXYZ",
		ClientSecret: "0123456789abcdef",
		AccessToken:  "tok1",
		RefreshToken: "abc",
		ExpiresAt:    3800,
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestFileStoreMissingFileIsFirstRun(t *testing.T) {
	store, _ := newTestFileStore(t)

	creds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if *creds != (Credentials{}) {
		t.Errorf("Load() on missing file = %+v, want empty credential set", creds)
	}
}

func TestFileStoreMissingKeysAreAbsent(t *testing.T) {
	store, path := newTestFileStore(t)

	content := "CLIENT_USERNAME=\"jeremy\"\nCLIENT_ID=\"22BXYZ\"\nCLIENT_SECRET=\"s3cret\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	creds, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if creds.AccessToken != "" || creds.RefreshToken != "" || creds.ExpiresAt != 0 {
		t.Errorf("absent keys must load as zero values, got %+v", creds)
	}
}

func TestFileStorePreservesUnknownKeys(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	content := "CLIENT_ID=\"22BXYZ\"\n# scheduler settings\nBACKUP_CRON=\"0 3 * * *\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	creds, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	creds.AccessToken = "tok1"
	creds.ExpiresAt = 100
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file back: %v", err)
	}
	if !strings.Contains(string(data), "BACKUP_CRON=\"0 3 * * *\"") {
		t.Errorf("unrecognized key lost on save:\n%s", data)
	}
}

func TestFileStoreClearedOptionalFieldIsRemoved(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	creds := &Credentials{ClientID: "22BXYZ", AccessToken: "tok1", ExpiresAt: 100}
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	creds.AccessToken = ""
	creds.ExpiresAt = 0
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save() after clearing: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file back: %v", err)
	}
	if strings.Contains(string(data), "ACCESS_TOKEN") || strings.Contains(string(data), "EXPIRES_AT") {
		t.Errorf("cleared fields must be absent, not empty:\n%s", data)
	}
}

func TestFileStoreWritePermissions(t *testing.T) {
	store, path := newTestFileStore(t)

	if err := store.Save(context.Background(), &Credentials{ClientID: "22BXYZ"}); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(): %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %04o, want 0600", perm)
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	store, path := newTestFileStore(t)

	if err := os.WriteFile(path, []byte("CLIENT_ID=\"22BXYZ\"\n"), 0644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Error("Load() accepted a world-readable credential file")
	}
}

func TestFileStoreRejectsMalformedLine(t *testing.T) {
	store, path := newTestFileStore(t)

	if err := os.WriteFile(path, []byte("CLIENT_ID\n"), 0600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Error("Load() accepted a line without a key/value separator")
	}
}

func TestFileStoreRejectsBadExpiry(t *testing.T) {
	store, path := newTestFileStore(t)

	if err := os.WriteFile(path, []byte("EXPIRES_AT=\"soon\"\n"), 0600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Error("Load() accepted a non-numeric EXPIRES_AT")
	}
}
