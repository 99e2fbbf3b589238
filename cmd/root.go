package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brettboylen/reddit-wrapped/api"
	"github.com/brettboylen/reddit-wrapped/db"
	"github.com/brettboylen/reddit-wrapped/stats"
	"github.com/brettboylen/reddit-wrapped/utils"
)

// Linker flags set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// persistent flag values
var (
	envPath    string
	configFile string
	logLevel   string
	logFormat  string
)

// log is replaced by setupConfig once the configuration is known
var log = logrus.New()

// config holds the loaded configuration for the running command
var config *utils.Config

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "reddit-wrapped",
	Short: "Summarize a Reddit user's history into a yearly wrap-up.",
	Long: `Reddit Wrapped fetches a user's public profile, posts and comments and
turns them into statistics: top subreddits, activity patterns, personality,
badges, milestones and more.

Run it as an HTTP API with "serve" or analyze a single user with "analyze".`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "Path to .env file (default .env, skipped when missing)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default .reddit-wrapped.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Logging format (text, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd, analyzeCmd, cacheCmd, versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setupConfig loads the configuration and configures the logger
func setupConfig(_ *cobra.Command, _ []string) error {
	if logLevel != "" {
		log = setupLogger(logLevel, logFormat)
	}

	cfg, err := utils.LoadConfig(envPath, configFile, log)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	log = setupLogger(level, format)
	config = cfg

	log.WithFields(logrus.Fields{
		"cache_backend": cfg.Cache.Backend,
		"cache_ttl":     cfg.Cache.TTL,
		"default_limit": cfg.Reddit.DefaultLimit,
		"max_limit":     cfg.Reddit.MaxLimit,
	}).Debug("Configuration loaded")
	return nil
}

// setupLogger creates a logger with the specified level and format
func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// openCache opens the configured result cache backend
func openCache() (*db.Cache, error) {
	backend, err := db.ParseBackend(config.Cache.Backend)
	if err != nil {
		return nil, err
	}
	cache, err := db.NewCache(backend, config.Cache.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open result cache: %w", err)
	}
	return cache, nil
}

// newCollector wires the Reddit client and cache into a collector
func newCollector(cache *db.Cache) (*stats.Collector, error) {
	if err := config.ValidateRedditCredentials(); err != nil {
		return nil, err
	}

	redditAPI := api.NewRedditAPI(
		config.Reddit.ClientID,
		config.Reddit.ClientSecret,
		config.Reddit.UserAgent,
		config.Reddit.MaxRequestsPerMinute,
		config.Reddit.Timeout,
		log,
	)

	collectorConfig := stats.CollectorConfig{
		CacheTTL:     config.Cache.TTL,
		DefaultLimit: config.Reddit.DefaultLimit,
		MaxLimit:     config.Reddit.MaxLimit,
	}

	// a disabled cache is passed as a nil interface, not a typed nil
	if cache == nil || cache.Backend() == db.BackendNone {
		return stats.NewCollector(redditAPI, nil, collectorConfig, log), nil
	}
	return stats.NewCollector(redditAPI, cache, collectorConfig, log), nil
}
