package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brettboylen/reddit-wrapped/db"
	"github.com/brettboylen/reddit-wrapped/metrics"
	"github.com/brettboylen/reddit-wrapped/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Reddit Wrapped HTTP API.",
	Long: `Serve the analysis API.

Endpoints:
  POST /api/analyze            {"username": "spez", "limit": 500}
  GET  /api/wrapped/:username  ?limit=500
  GET  /healthz
  GET  /metrics`,
	Args:    cobra.NoArgs,
	PreRunE: setupConfig,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on; overrides SERVER_PORT")
}

func runServe(_ *cobra.Command, _ []string) error {
	log.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
	}).Infof("Starting %s", config.App.Name)

	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.WithError(err).Warn("Failed to close result cache")
		}
	}()

	collector, err := newCollector(cache)
	if err != nil {
		return err
	}

	metrics.Init(config.App.Name, config.App.Version)

	port := config.Server.Port
	if servePort > 0 {
		port = servePort
	}
	srv := server.New(collector, server.Config{
		Port:              port,
		RequestsPerMinute: config.Server.RequestsPerMinute,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeExpired(ctx, cache, config.Cache.TTL)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	log.Infof("%s stopped", config.App.Name)
	return nil
}

// purgeExpired removes expired cache entries every interval until ctx is done
func purgeExpired(ctx context.Context, cache *db.Cache, interval time.Duration) {
	if cache.Backend() == db.BackendNone || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := cache.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired cache entries")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Info("Purged expired cache entries")
			}
		}
	}
}
