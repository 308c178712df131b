package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/jrg94/fitbit-backup/internal/app"
	"github.com/jrg94/fitbit-backup/internal/tokensource"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "store operator credentials and verify them against the authorization server",
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
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "OAuth2 client id (prompted if omitted)",
			},
			&cli.StringFlag{
				Name:  "username",
				Usage: "account username (prompted if omitted)",
			},
		},
		Action: loginAction,
	}
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := cfg.Auth.NewStore()
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}

	creds, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored credentials: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	creds.ClientID, err = promptValue(reader, "Client ID", cmd.String("client-id"), creds.ClientID)
	if err != nil {
		return err
	}
	creds.ClientSecret, err = promptSecret("Client secret", creds.ClientSecret)
	if err != nil {
		return err
	}
	creds.Username, err = promptValue(reader, "Username", cmd.String("username"), creds.Username)
	if err != nil {
		return err
	}
	creds.Password, err = promptSecret("Password", creds.Password)
	if err != nil {
		return err
	}

	// New operator input invalidates whatever tokens were stored
	creds.AccessToken = ""
	creds.RefreshToken = ""
	creds.ExpiresAt = 0

	if err := store.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	// One authentication round trip verifies the input and seeds the
	// token triple for unattended runs.
	manager := tokensource.NewManager(store)
	if _, err := manager.Token(ctx); err != nil {
		return fmt.Errorf("credential verification failed: %w", err)
	}
	if err := manager.PersistenceFailure(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "credentials verified and stored")
	return nil
}

// promptValue resolves an input in precedence order: flag value, interactive
// prompt, previously stored value (shown as the default).
func promptValue(reader *bufio.Reader, label, flagValue, current string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}

	value := strings.TrimSpace(line)
	if value == "" {
		value = current
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}

// promptSecret reads without echo. Keeps the stored value on empty input.
func promptSecret(label, current string) (string, error) {
	if current != "" {
		fmt.Printf("%s [stored]: ", label)
	} else {
		fmt.Printf("%s: ", label)
	}
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		value = current
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}
