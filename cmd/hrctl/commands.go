package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"hr-platform/pkg/authclient"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type contextKey string

const clientContextKey contextKey = "hrctl-client"

type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     settings
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "hrctl",
		Short: "Command-line access to the HR API",
		Long: `hrctl logs in to the HR API, keeps the session in the OS keyring and
refreshes it transparently when the access token expires.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg

			store := authclient.NewKeyringStore(keyringService, cfg.keyringUser())
			client, err := authclient.NewClient(cfg.BaseURL, store, authclient.Options{
				RefreshTimeout: cfg.RefreshTimeout,
				OnSessionExpired: func() {
					fmt.Fprintln(cmd.ErrOrStderr(), "session expired, run `hrctl login` again")
				},
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), clientContextKey, client))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String("base-url", "", "HR API base URL (overrides config)")
	root.PersistentFlags().String("subject", "", "subject id to log in as")
	_ = c.v.BindPFlag(keyBaseURL, root.PersistentFlags().Lookup("base-url"))
	_ = c.v.BindPFlag(keySubject, root.PersistentFlags().Lookup("subject"))

	root.AddCommand(newLoginCmd(c), newLogoutCmd(), newWhoamiCmd(), newGetCmd())
	return root
}

func clientFrom(cmd *cobra.Command) (*authclient.Client, error) {
	client, ok := cmd.Context().Value(clientContextKey).(*authclient.Client)
	if !ok {
		return nil, errors.New("no client in context")
	}
	return client, nil
}

func newLoginCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session in the keyring",
		Long: `Log in with a subject id and secret.

Examples:
	hrctl login --subject emp-42
	HRCTL_SECRET=... hrctl login --subject emp-42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Subject == "" {
				return errors.New("--subject is required")
			}
			secret := c.cfg.Secret
			if secret == "" {
				fmt.Fprint(cmd.OutOrStdout(), "secret: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				secret = strings.TrimSpace(line)
			}

			client, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			if err := client.Login(cmd.Context(), c.cfg.Subject, secret); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", c.cfg.Subject)
			return nil
		},
	}
	cmd.Flags().String("secret", "", "secret (prefer HRCTL_SECRET or the prompt)")
	_ = c.v.BindPFlag(keySecret, cmd.Flags().Lookup("secret"))
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGet(cmd, "/v1/me")
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET a protected API path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			return printGet(cmd, path)
		},
	}
}

func printGet(cmd *cobra.Command, path string) error {
	client, err := clientFrom(cmd)
	if err != nil {
		return err
	}
	resp, err := client.Get(cmd.Context(), path)
	if err != nil {
		if errors.Is(err, authclient.ErrSessionExpired) {
			return errors.New("not logged in")
		}
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
	return err
}
