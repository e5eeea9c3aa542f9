/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Contest standings server and terminal viewer",
	Long: `scoreboard ranks contest participants by ICPC rules.

It serves paginated standings over HTTP, consumes verdict events from a
message queue, archives final standings, and can follow a contest's
standings from the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment.
func loadConfig() (config.Config, error) {
	cfg := config.LoadConfig()
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
