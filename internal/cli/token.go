package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewmudry/manimgen-api/auth"
)

type tokenOptions struct {
	Subject string
	TTL     time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Mint a bearer token for the API (needs JWT_SECRET)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			if cfg.JWTSecret == "" {
				return reportError(rootOpts, cmd, errors.New("JWT_SECRET is not set; the API accepts requests without a token"))
			}
			token, err := auth.GenerateJWT(cfg.JWTSecret, opts.Subject, opts.TTL)
			if err != nil {
				return reportError(rootOpts, cmd, err)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: map[string]string{"token": token}})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "manimctl", "token subject")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 7*24*time.Hour, "token lifetime")
	return cmd
}
