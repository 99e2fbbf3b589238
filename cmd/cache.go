package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brettboylen/reddit-wrapped/db"
	"github.com/brettboylen/reddit-wrapped/report"
	"github.com/brettboylen/reddit-wrapped/stats"
)

// resultCache is opened by cacheSetup for the cache subcommands
var resultCache *db.Cache

// cacheSetup loads the configuration and opens the result cache
func cacheSetup(cmd *cobra.Command, args []string) error {
	if err := setupConfig(cmd, args); err != nil {
		return err
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	resultCache = cache
	return nil
}

func cacheTeardown(_ *cobra.Command, _ []string) error {
	if resultCache == nil {
		return nil
	}
	return resultCache.Close()
}

// cacheCmd groups result cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis result cache.",
	Long: `Manage the cache that stores computed wrapped stats per user.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None.`,
	PersistentPreRunE:  cacheSetup,
	PersistentPostRunE: cacheTeardown,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache backend, entry counts and size.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := resultCache.Status(context.Background())
		if err != nil {
			return err
		}
		return report.WriteCacheStatus(cmd.OutOrStdout(), status)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		removed, err := resultCache.Clear(context.Background())
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d cached results\n", removed)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired cached results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		removed, err := resultCache.PurgeExpired(context.Background())
		if err != nil {
			return err
		}
		cmd.Printf("Purged %d expired results\n", removed)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Remove the cached result for one user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := stats.CleanUsername(args[0])
		if err != nil {
			return err
		}
		if err := resultCache.Delete(context.Background(), stats.CacheKey(username)); err != nil {
			return fmt.Errorf("failed to delete cached result for %s: %w", username, err)
		}
		cmd.Printf("Removed cached result for u/%s\n", username)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd, cacheClearCmd, cachePurgeCmd, cacheDeleteCmd)
}
