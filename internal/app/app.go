package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jrg94/fitbit-backup/internal/export"
	"github.com/jrg94/fitbit-backup/internal/fitbit"
	"github.com/jrg94/fitbit-backup/internal/gitsync"
	"github.com/jrg94/fitbit-backup/internal/tokensource"
)

// App orchestrates one backup run: obtain a valid token, fetch the time
// series year by year, write the CSV, optionally commit it.
type App struct {
	cfg     *Config
	manager *tokensource.Manager
	syncer  *gitsync.Syncer

	now func() time.Time
}

// New creates a new App instance.
func New(cfg *Config, opts ...tokensource.ManagerOption) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// I/O deferred to the first token request
	store, err := cfg.Auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	var syncer *gitsync.Syncer
	if cfg.Git.Enabled {
		syncer, err = gitsync.New(gitsync.Options{
			Path:        cfg.Git.Path,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
			Push:        cfg.Git.Push,
			RemoteName:  cfg.Git.Remote,
			Username:    cfg.Git.Username,
			Password:    cfg.Git.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create git syncer: %w", err)
		}
	}

	return &App{
		cfg:     cfg,
		manager: tokensource.NewManager(store, opts...),
		syncer:  syncer,
		now:     time.Now,
	}, nil
}

// Manager exposes the token manager (for the token subcommand).
func (a *App) Manager() *tokensource.Manager {
	return a.manager
}

// Run executes one backup run start to finish.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	slog.InfoContext(ctx, "starting backup run",
		"run_id", runID, "resource", a.cfg.Fitbit.Resource)

	// Acquire the token up front so credential problems surface before the
	// fetch fan-out; subsequent calls hit the fast path.
	if _, err := a.manager.Token(ctx); err != nil {
		return fmt.Errorf("acquiring access token: %w", err)
	}

	series, err := a.fetchSeries(ctx)
	if err != nil {
		return err
	}

	merged := export.Merge(series...)
	outputPath := a.cfg.OutputPath()
	if err := export.WriteCSV(outputPath, merged); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	slog.InfoContext(ctx, "export written", "path", outputPath, "days", len(merged))

	if a.syncer != nil {
		if err := a.commit(ctx, runID); err != nil {
			return err
		}
	}

	// A failed credential rotation write is surfaced only now: the token
	// stayed valid for this run, but the operator must know the next run
	// will re-authenticate.
	if err := a.manager.PersistenceFailure(); err != nil {
		return fmt.Errorf("backup completed but %w", err)
	}

	slog.InfoContext(ctx, "backup run finished", "run_id", runID)
	return nil
}

// fetchSeries pulls one year-long window per year end between the configured
// start date and the end of next year, a bounded number at a time.
func (a *App) fetchSeries(ctx context.Context) ([][]fitbit.Point, error) {
	start, err := a.cfg.StartTime()
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}

	client := fitbit.New(a.manager.TokenSource(ctx), fitbit.WithBaseURL(a.cfg.Fitbit.BaseURL))
	baseDates := yearEnds(start, a.now())

	series := make([][]fitbit.Point, len(baseDates))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Export.Concurrency)
	for i, baseDate := range baseDates {
		g.Go(func() error {
			points, err := client.TimeSeries(gCtx, a.cfg.Fitbit.Resource, baseDate, fitbit.Period1Year)
			if err != nil {
				return fmt.Errorf("fetching year ending %s: %w", baseDate.Format("2006-01-02"), err)
			}
			slog.DebugContext(gCtx, "fetched yearly series",
				"base_date", baseDate.Format("2006-01-02"), "days", len(points))
			series[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return series, nil
}

func (a *App) commit(ctx context.Context, runID string) error {
	rel, err := a.cfg.exportRelPath()
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Backup %s (run %s)", a.cfg.Fitbit.Resource, runID)
	hash, err := a.syncer.Commit(ctx, message, rel)
	if err != nil {
		return fmt.Errorf("committing export: %w", err)
	}
	if hash == "" {
		slog.InfoContext(ctx, "no changes since last backup, nothing committed")
		return nil
	}
	slog.InfoContext(ctx, "export committed", "commit", hash)
	return nil
}

// yearEnds returns December 31 of every year from start through the year
// after now. Querying one year past today mirrors the upstream period
// semantics: the final window reaches back over the current partial year.
func yearEnds(start, now time.Time) []time.Time {
	lastYear := now.Year() + 1
	dates := make([]time.Time, 0, lastYear-start.Year()+1)
	for year := start.Year(); year <= lastYear; year++ {
		dates = append(dates, time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	}
	return dates
}
