package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	configstore "github.com/fabriclens/fabriclens/internal/config/store"
)

func newLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:           "login",
		Short:         "Store an API token for authenticating against the daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          loginDaemon,
	}
	loginCmd.Flags().String("token", "", "API token (prompted when omitted)")
	return loginCmd
}

func loginDaemon(cmd *cobra.Command, args []string) error {
	formatter := newOutputFormatter(cmd)

	token, _ := cmd.Flags().GetString("token")
	token = strings.TrimSpace(token)
	if token == "" {
		var err error
		token, err = promptToken()
		if err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	store, err := configstore.Open(configstore.Options{})
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}
	defer store.Close()

	ctx, cancel := requestContext()
	defer cancel()

	authCfg, err := store.GetAuthConfig(ctx)
	if err != nil {
		return err
	}

	for _, existing := range authCfg.Tokens {
		if existing == token {
			return formatter.Success("Token already stored", nil)
		}
	}

	authCfg.Tokens = append(authCfg.Tokens, token)
	if err := store.SaveAuthConfig(ctx, authCfg); err != nil {
		return err
	}

	return formatter.Success("Token stored", map[string]any{
		"tokens": len(authCfg.Tokens),
	})
}

// promptToken reads the token without echoing when stdin is a terminal,
// falling back to a plain line read when it is piped.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "API token: ")
		raw, err := terminal.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
