package credstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileStore persists the credential set as a flat KEY="value" file.
// Writes use temp file + rename for crash safety. Keys the store does not
// recognize survive a save unchanged, so the file can double as a dotenv
// file for the surrounding tooling.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent
// directories with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Load reads the credential set from the file. A missing file yields an
// empty credential set (true first run); a present file must have 0600
// permissions. Keys absent from the file stay zero-valued.
func (f *FileStore) Load(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pairs, err := f.readPairs()
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, err
	}

	creds := &Credentials{
		Username:     pairs[KeyUsername],
		Password:     pairs[KeyPassword],
		ClientID:     pairs[KeyClientID],
		ClientSecret: pairs[KeyClientSecret],
		AccessToken:  pairs[KeyAccessToken],
		RefreshToken: pairs[KeyRefreshToken],
	}
	if raw, ok := pairs[KeyExpiresAt]; ok && raw != "" {
		expiresAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", KeyExpiresAt, raw, err)
		}
		creds.ExpiresAt = expiresAt
	}
	return creds, nil
}

// Save atomically rewrites the file with the full credential set, keeping
// unrecognized keys from the existing file. Sets 0600 permissions.
func (f *FileStore) Save(ctx context.Context, creds *Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pairs, err := f.readPairs()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if pairs == nil {
		pairs = map[string]string{}
	}

	setOrDelete := func(key, value string) {
		if value == "" {
			delete(pairs, key)
			return
		}
		pairs[key] = value
	}
	setOrDelete(KeyUsername, creds.Username)
	setOrDelete(KeyPassword, creds.Password)
	setOrDelete(KeyClientID, creds.ClientID)
	setOrDelete(KeyClientSecret, creds.ClientSecret)
	setOrDelete(KeyAccessToken, creds.AccessToken)
	setOrDelete(KeyRefreshToken, creds.RefreshToken)
	if creds.ExpiresAt > 0 {
		pairs[KeyExpiresAt] = strconv.FormatInt(creds.ExpiresAt, 10)
	} else {
		delete(pairs, KeyExpiresAt)
	}

	// Create temp file in same directory for atomic rename
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if err := tempFile.Chmod(0600); err != nil {
		return err
	}
	if _, err := tempFile.WriteString(formatPairs(pairs)); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// Atomic rename to final location
	return os.Rename(tempName, f.filePath)
}

// readPairs parses the file into a key/value map after checking permissions.
func (f *FileStore) readPairs() (map[string]string, error) {
	info, err := os.Stat(f.filePath)
	if err != nil {
		return nil, err
	}
	if info.Mode().Perm() != 0600 {
		return nil, fmt.Errorf("insecure permissions on %s: %04o (expected 0600)", f.filePath, info.Mode().Perm())
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	pairs := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: expected KEY=\"value\"", f.filePath, i+1)
		}
		pairs[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	return pairs, nil
}

// formatPairs renders the map one KEY="value" per line, credential keys in
// canonical order first, then unrecognized keys sorted.
func formatPairs(pairs map[string]string) string {
	canonical := []string{
		KeyUsername, KeyPassword, KeyClientID, KeyClientSecret,
		KeyAccessToken, KeyRefreshToken, KeyExpiresAt,
	}

	var sb strings.Builder
	written := make(map[string]bool, len(pairs))
	for _, key := range canonical {
		if value, ok := pairs[key]; ok {
			fmt.Fprintf(&sb, "%s=%s\n", key, quote(value))
			written[key] = true
		}
	}

	var rest []string
	for key := range pairs {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(&sb, "%s=%s\n", key, quote(pairs[key]))
	}
	return sb.String()
}

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = value[1 : len(value)-1]
		value = strings.ReplaceAll(value, `\"`, `"`)
		value = strings.ReplaceAll(value, `\\`, `\`)
	}
	return value
}
