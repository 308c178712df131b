package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jrg94/fitbit-backup/internal/app"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "print a valid access token (refreshing if necessary)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage backend (file|keyring)",
				Value: string(app.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--file",
				Usage: "path to the credential file (file storage)",
			},
		},
		Action: tokenAction,
	}
}

func tokenAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	token, err := application.Manager().AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	// Token goes to stdout for scripting; everything else logs to stderr
	fmt.Println(token)

	return application.Manager().PersistenceFailure()
}
