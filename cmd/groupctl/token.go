package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"groupwatch/internal/handler/http/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the control API",
	Long: `Sign an operator token with CONTROL_JWT_SECRET for use against the
worker's mutating control routes.

Example:
  $ curl -X POST -H "Authorization: Bearer $(groupctl token)" localhost:8080/scan`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runToken(cmd.OutOrStdout(), cfg.ControlJWTSecret, tokenSubject, tokenTTL, time.Now())
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(out io.Writer, secret, subject string, ttl time.Duration, now time.Time) error {
	if secret == "" {
		return errors.New("CONTROL_JWT_SECRET is not set")
	}
	tok, err := auth.IssueToken(secret, subject, ttl, now)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}
