package main

import (
	"time"

	"github.com/spf13/cobra"

	"luxe/config"
	"luxe/middleware"
)

var tokenFlags struct {
	user string
	ttl  time.Duration
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.user, "user", "", "user id to put in the token")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the HTTP API",
	Long: `Sign a token with JWT_SECRET for use as "Authorization: Bearer <token>".

Examples:
  luxe token --user alice --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := config.LoadDotEnv(); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := middleware.NewAuth(cfg.Server.JWTSecret).Issue(tokenFlags.user, tokenFlags.ttl)
		if err != nil {
			return err
		}
		cmd.Println(token)
		return nil
	},
}
