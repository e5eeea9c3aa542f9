/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjudge-oj/scoreboard/internal/client"
	"github.com/jjudge-oj/scoreboard/internal/poller"
	"github.com/jjudge-oj/scoreboard/internal/render"
)

const clearScreen = "\033[H\033[2J"

var (
	watchPage   int
	watchFollow bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <contestID>",
	Short: "Follow a contest's standings in the terminal",
	Long: `Fetches a contest's standings immediately and then on every poll
interval until the contest has ended. Type a page number and press enter to
switch pages.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer func() {
			_ = logger.Sync()
		}()

		c, err := newAPIClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		out := cmd.OutOrStdout()
		p := poller.New(c,
			poller.WithInterval(cfg.Poller.Interval),
			poller.WithPage(watchPage),
			poller.WithLogger(logger.Named("poller")),
			poller.OnChange(func(v poller.View) {
				fmt.Fprint(out, clearScreen)
				_ = render.View(out, v)
				if v.Final && !watchFollow {
					cancel()
				}
			}),
		)

		go readPages(ctx, cmd.InOrStdin(), p)
		return p.Run(ctx, contestIDResolver(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVar(&watchPage, "page", 1, "standings page to show")
	watchCmd.Flags().BoolVar(&watchFollow, "follow", false, "keep running after the contest has ended")
}

// contestIDResolver validates the contest id argument the same way the API
// client does before any request is made.
func contestIDResolver(raw string) poller.Resolver {
	return func(context.Context) (int, error) {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || id < 1 {
			return 0, &client.Error{Kind: client.KindInvalid, Message: client.MsgInvalidContestID}
		}
		return id, nil
	}
}

func readPages(ctx context.Context, in io.Reader, p *poller.Poller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		page, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || page < 1 {
			continue
		}
		if !p.SetPage(ctx, page) {
			return
		}
	}
}
