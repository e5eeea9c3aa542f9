/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/client"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the token for watch",
	Long: `Signs in to the scoreboard API and stores the token in the session
file used by watch. The password is read from stdin when --password is not
given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if strings.TrimSpace(loginUsername) == "" {
			return errors.New("--username is required")
		}
		password := loginPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		c, err := newAPIClient(cfg)
		if err != nil {
			return err
		}
		user, err := c.Login(cmd.Context(), loginUsername, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
}

func newAPIClient(cfg config.Config) (*client.Client, error) {
	var session client.SessionStore
	if cfg.Poller.SessionFile != "" {
		session = client.NewFileSession(cfg.Poller.SessionFile)
	}
	return client.New(cfg.Poller.APIURL, session)
}
