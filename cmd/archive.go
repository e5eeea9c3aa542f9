/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jjudge-oj/scoreboard/internal/server"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <contestID>",
	Short: "Store the final standings of an ended contest",
	Long: `Computes the final standings of an ended contest directly from the
database and writes them to the configured object storage as
standings/<contestID>/final.json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contestID, err := strconv.Atoi(args[0])
		if err != nil || contestID < 1 {
			return fmt.Errorf("invalid contest id %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer func() {
			_ = logger.Sync()
		}()

		components, err := server.Open(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = components.Close()
		}()

		key, err := components.Standings.Archive(cmd.Context(), contestID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
