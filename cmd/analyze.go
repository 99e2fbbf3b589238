package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brettboylen/reddit-wrapped/models"
	"github.com/brettboylen/reddit-wrapped/report"
	"github.com/brettboylen/reddit-wrapped/stats"
)

var (
	analyzeLimit   int
	analyzeJSON    bool
	analyzeNoCache bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Analyze a single Reddit user and print the report.",
	Long: `Fetch a user's public history from Reddit and print their wrapped stats.

The username may be given with or without the u/ prefix. Results are read
from and written to the configured result cache unless --no-cache is set.`,
	Example: `  reddit-wrapped analyze spez
  reddit-wrapped analyze u/spez --limit 200 --json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupConfig,
	RunE:    runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "l", 0, "Maximum posts and comments to fetch (0 uses the configured default)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the raw JSON response")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Skip the result cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	collector, closeCache, err := analyzeCollector()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := collector.Analyze(ctx, models.AnalyzeRequest{Username: args[0], Limit: analyzeLimit})
	if err != nil {
		var statsErr *stats.Error
		if errors.As(err, &statsErr) {
			return fmt.Errorf("%s: %s", statsErr.Code, statsErr.Message)
		}
		return err
	}

	if analyzeJSON {
		return report.WriteJSON(cmd.OutOrStdout(), resp)
	}
	return report.WriteText(cmd.OutOrStdout(), resp)
}

// analyzeCollector builds a collector, with the result cache unless disabled
func analyzeCollector() (*stats.Collector, func(), error) {
	if analyzeNoCache {
		collector, err := newCollector(nil)
		return collector, func() {}, err
	}

	cache, err := openCache()
	if err != nil {
		return nil, nil, err
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			log.WithError(err).Warn("Failed to close result cache")
		}
	}

	collector, err := newCollector(cache)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return collector, closeCache, nil
}
