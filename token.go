package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskmate/config"
	"taskmate/services"
	"taskmate/session"
)

func init() {
	var uid, email, name string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token (AUTH_MODE=jwt)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.AuthMode != config.AuthJWT {
				return fmt.Errorf("tokens are only accepted with AUTH_MODE=jwt")
			}
			sess := session.Session{UID: uid, Email: email, DisplayName: name}
			token, err := services.CreateAccessToken([]byte(cfg.JWTSecretKey), sess, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, token)
			return nil
		},
	}
	tokenCmd.Flags().StringVarP(&uid, "uid", "u", "", "User ID (required)")
	tokenCmd.Flags().StringVarP(&email, "email", "e", "", "Email claim")
	tokenCmd.Flags().StringVarP(&name, "name", "n", "", "Display name claim")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(tokenCmd)
}
