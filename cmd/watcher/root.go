package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/config"
	"github.com/JakeFAU/profile-watcher/internal/logging"
	"github.com/JakeFAU/profile-watcher/internal/server"
)

// newRootCmd creates the single command the watcher exposes.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		envFile string
	)
	cmd := &cobra.Command{
		Use:   "watcher",
		Short: "Watches one profile page and pushes keyword alerts to Telegram.",
		Long: `watcher renders a social profile page in headless Chrome with a fixed
client identity, reads the newest posts, and sends a Telegram message for every
post it has not seen before that mentions one of the configured keywords.
It runs until interrupted.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			app, err := server.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("build watcher: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars prefixed WATCHER_ override it")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	return cmd
}

// loadEnvFile loads a dotenv file if present. A missing default file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
