package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jrg94/fitbit-backup/internal/app"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "fetch the configured time series and write the CSV export",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage backend (file|keyring)",
				Value: string(app.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--file",
				Usage: "path to the credential file (file storage)",
			},
			&cli.StringFlag{
				Name:  "fitbit--resource",
				Usage: "time-series resource to back up",
				Value: app.DefaultConfigResource,
			},
			&cli.StringFlag{
				Name:  "export--dir",
				Usage: "directory receiving the CSV export",
				Value: app.DefaultConfigExportDir,
			},
			&cli.StringFlag{
				Name:  "export--start-date",
				Usage: "first day of history to back up (YYYY-MM-DD)",
				Value: app.DefaultConfigStartDate,
			},
			&cli.BoolFlag{
				Name:  "git--enabled",
				Usage: "commit the export to a git repository",
			},
			&cli.BoolFlag{
				Name:  "git--push",
				Usage: "push the commit to the configured remote",
			},
		},
		Action: backupAction,
	}
}

func backupAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	slog.InfoContext(ctx, "done")
	return nil
}
