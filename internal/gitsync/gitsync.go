// Package gitsync commits exported files to a git repository so every
// scheduled run leaves a versioned snapshot behind.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Options captures configuration required to operate the repository.
type Options struct {
	// Path is the repository worktree root. Initialized if not a repo yet.
	Path        string
	AuthorName  string
	AuthorEmail string

	// Push, when true, pushes the commit to RemoteName after committing.
	Push       bool
	RemoteName string
	// Username and Password authenticate the push (e.g. a GitHub token).
	Username string
	Password string
}

// Syncer stages and commits files in a local repository.
type Syncer struct {
	options Options
}

// New creates a Syncer. The repository is opened lazily on first Commit.
func New(options Options) (*Syncer, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("repository path cannot be empty")
	}
	if options.AuthorName == "" || options.AuthorEmail == "" {
		return nil, fmt.Errorf("commit author name and email are required")
	}
	if options.RemoteName == "" {
		options.RemoteName = "origin"
	}
	return &Syncer{options: options}, nil
}

// Commit stages the given files (paths relative to the repository root) and
// commits them with the given message. Returns the commit hash, or an empty
// string when the worktree was already clean.
func (s *Syncer) Commit(ctx context.Context, message string, files ...string) (string, error) {
	repo, err := s.openOrInit()
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitsync: worktree: %w", err)
	}

	for _, file := range files {
		if filepath.IsAbs(file) {
			return "", fmt.Errorf("gitsync: path %s must be relative to the repository root", file)
		}
		if _, err := worktree.Add(file); err != nil {
			return "", fmt.Errorf("gitsync: stage %s: %w", file, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("gitsync: status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.options.AuthorName,
			Email: s.options.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("gitsync: commit: %w", err)
	}

	if s.options.Push {
		if err := s.push(ctx, repo); err != nil {
			return hash.String(), err
		}
	}

	return hash.String(), nil
}

func (s *Syncer) openOrInit() (*git.Repository, error) {
	if err := os.MkdirAll(s.options.Path, 0755); err != nil {
		return nil, fmt.Errorf("gitsync: create repository dir: %w", err)
	}

	repo, err := git.PlainOpen(s.options.Path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("gitsync: open repository: %w", err)
	}

	repo, err = git.PlainInit(s.options.Path, false)
	if err != nil {
		return nil, fmt.Errorf("gitsync: init repository: %w", err)
	}
	return repo, nil
}

func (s *Syncer) push(ctx context.Context, repo *git.Repository) error {
	options := &git.PushOptions{RemoteName: s.options.RemoteName}
	if s.options.Username != "" {
		options.Auth = &http.BasicAuth{
			Username: s.options.Username,
			Password: s.options.Password,
		}
	}

	if err := repo.PushContext(ctx, options); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gitsync: push to %s: %w", s.options.RemoteName, err)
	}
	return nil
}
