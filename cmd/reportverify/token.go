package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reportverify/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenScopes  []string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for the verification server",
	Long: `Issue a signed bearer token for calling the verification API. The token
is signed with the configured auth secret, so run this with the same
configuration as the server.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenSubject == "" {
		return fmt.Errorf("--subject is required")
	}
	scopes := make([]auth.Scope, 0, len(tokenScopes))
	for _, s := range tokenScopes {
		scope := auth.Scope(s)
		if scope != auth.ScopeRead && scope != auth.ScopeWrite {
			return fmt.Errorf("unknown scope %q (want %s or %s)", s, auth.ScopeRead, auth.ScopeWrite)
		}
		scopes = append(scopes, scope)
	}

	tokens := auth.NewTokenService(&cfg.Auth)
	token, expiresAt, err := tokens.Issue(tokenSubject, tokenTTL, scopes...)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	logger.Info("token issued", zap.String("subject", tokenSubject), zap.Time("expires_at", expiresAt))

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires: %s\n", token, expiresAt.UTC().Format(time.RFC3339))
	return err
}
