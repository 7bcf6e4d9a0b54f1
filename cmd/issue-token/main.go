// Command issue-token mints an identity token signed with auth.jwt_secret,
// for local development and smoke tests.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sifan077/hyperindex/config"
	"github.com/sifan077/hyperindex/internal/app/model"
	httpUtil "github.com/sifan077/hyperindex/internal/http/util"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		userID int64
		admin  bool
	)

	cmd := &cobra.Command{
		Use:          "issue-token",
		Short:        "Mint a signed identity token",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user must be a positive id")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			verifier := httpUtil.NewTokenVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
			token, err := verifier.Issue(model.Identity{UserID: userID, IsAdmin: admin})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id to embed in the token")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin flag")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
