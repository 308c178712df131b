package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jrg94/fitbit-backup/internal/credstore"
	"github.com/jrg94/fitbit-backup/internal/fitbit"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTel LogFormat = "otel"
)

// CredentialStorageType represents the storage backends for the credential set.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat     = LogFormatText
	DefaultConfigAuthStorage   = CredentialStorageTypeFile
	DefaultConfigFitbitBaseURL = fitbit.DefaultBaseURL
	DefaultConfigResource      = "activities/steps"
	DefaultConfigStartDate     = "2015-07-26"
	DefaultConfigExportDir     = "data"
	DefaultConfigConcurrency   = 4
	DefaultConfigGitRemote     = "origin"

	keyringService = "fitbit-backup"
)

// AuthConfig describes where the credential set is stored.
type AuthConfig struct {
	// Storage backend for the credential set
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to credential file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier

	// DisableEnvOverlay turns off filling absent operator-supplied fields
	// from FITBIT_* environment variables.
	DisableEnvOverlay bool `json:"disable_env_overlay,omitempty"`
}

// NewStore creates a credential store from the authentication configuration.
func (a *AuthConfig) NewStore() (credstore.Store, error) {
	var store credstore.Store
	var err error

	switch a.Storage {
	case CredentialStorageTypeFile:
		store, err = credstore.NewFileStore(a.File)
	case CredentialStorageTypeKeyring:
		store, err = credstore.NewKeyringStore(keyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
	if err != nil {
		return nil, err
	}

	if a.DisableEnvOverlay {
		return store, nil
	}
	return credstore.NewEnvOverlay(store, credstore.DefaultEnvPrefix), nil
}

// FitbitConfig holds upstream API configuration.
type FitbitConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Resource is the time-series resource path, e.g. activities/steps.
	Resource string `json:"resource" validate:"required"`
}

// ExportConfig holds export behavior configuration.
type ExportConfig struct {
	// Dir receives the CSV files.
	Dir string `json:"dir" validate:"required"`
	// StartDate is the first day of history to back up (YYYY-MM-DD).
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	// Concurrency bounds parallel yearly fetches.
	Concurrency int `json:"concurrency" validate:"min=1,max=16"`
}

// GitConfig holds the optional repository commit step.
type GitConfig struct {
	Enabled     bool   `json:"enabled"`
	Path        string `json:"path,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty" validate:"omitempty,email"`
	Push        bool   `json:"push"`
	Remote      string `json:"remote,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level   `json:"log_level"`
	LogFormat LogFormat    `json:"log_format" validate:"oneof=text json otel"`
	Auth      AuthConfig   `json:"auth"`
	Fitbit    FitbitConfig `json:"fitbit"`
	Export    ExportConfig `json:"export"`
	Git       GitConfig    `json:"git"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Fitbit.BaseURL == "" {
		c.Fitbit.BaseURL = DefaultConfigFitbitBaseURL
	}
	if c.Fitbit.Resource == "" {
		c.Fitbit.Resource = DefaultConfigResource
	}
	if c.Export.Dir == "" {
		c.Export.Dir = DefaultConfigExportDir
	}
	if c.Export.StartDate == "" {
		c.Export.StartDate = DefaultConfigStartDate
	}
	if c.Export.Concurrency == 0 {
		c.Export.Concurrency = DefaultConfigConcurrency
	}
	if c.Git.Remote == "" {
		c.Git.Remote = DefaultConfigGitRemote
	}
	if c.Git.Path == "" {
		c.Git.Path = "."
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "fitbit-backup", "credentials.env")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("auth.file required for file storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("auth.keyring_user required for keyring storage")
		}
	}

	if c.Git.Enabled {
		if c.Git.AuthorName == "" || c.Git.AuthorEmail == "" {
			return errors.New("git.author_name and git.author_email required when git is enabled")
		}
		if _, err := c.exportRelPath(); err != nil {
			return err
		}
	}

	return nil
}

// StartTime parses the configured start date.
func (c *Config) StartTime() (time.Time, error) {
	return time.Parse("2006-01-02", c.Export.StartDate)
}

// OutputPath is the CSV destination, derived from the resource path the
// same way the API flattens it (activities/steps -> activities-steps.csv).
func (c *Config) OutputPath() string {
	name := strings.ReplaceAll(c.Fitbit.Resource, "/", "-") + ".csv"
	return filepath.Join(c.Export.Dir, name)
}

// exportRelPath resolves the export file relative to the git worktree root.
func (c *Config) exportRelPath() (string, error) {
	rel, err := filepath.Rel(c.Git.Path, c.OutputPath())
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("export.dir %s must be inside git.path %s", c.Export.Dir, c.Git.Path)
	}
	return rel, nil
}
