package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taskmate/config"
	"taskmate/connection"
	"taskmate/logger"
)

var rootCmd = &cobra.Command{
	Use:   "taskmate",
	Short: "Shared assignments with live sync and a reminder calendar",
}

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)
			ctx, stop := signalContext()
			defer stop()
			return connection.StartServer(ctx, cfg, log.Logger)
		},
	}
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the environment and installs the global logger at the
// configured level.
func loadConfig() (*config.Config, error) {
	log.Logger = logger.New("taskmate", zerolog.InfoLevel)
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	log.Logger = logger.New("taskmate", cfg.Level())
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
