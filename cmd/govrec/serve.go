package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/boardworks/govrec/internal/api"
	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/monitor"
	"github.com/boardworks/govrec/internal/storage"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the governance HTTP API",
	Long: `Serve the governance API over HTTP until interrupted.

Callers identify themselves with the X-Actor-ID and X-Actor-Role headers.
Roles map to capabilities through the policy file (policy_path in config),
or the built-in default policy when none is configured.

Prometheus metrics are exposed at /metrics. While serving, overdue review
flags are checked every overdue_interval and logged.

Only one server may use a database at a time; the claim is recorded in
<database>.serve-lock.`,
	Run: func(cmd *cobra.Command, args []string) {
		policy, err := authz.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			fail(err)
		}

		server, err := api.New(&api.Config{
			Service:   svc,
			Oracle:    policy,
			Logger:    logger,
			Metrics:   appMetrics,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		})
		if err != nil {
			fail(err)
		}

		addr := cfg.ListenAddr
		if serveListen != "" {
			addr = serveListen
		}

		lockPath, err := storage.AcquireServerLock(storePath, addr)
		if err != nil {
			fail(err)
		}
		defer func() {
			if err := storage.ReleaseServerLock(lockPath); err != nil {
				logger.Warn("failed to release server lock", "path", lockPath, "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(ctx, addr, cfg.ShutdownTimeout)
		})
		if cfg.OverdueInterval > 0 {
			overdue, err := monitor.NewOverdueMonitor(&monitor.OverdueConfig{
				Source:   svc,
				Logger:   logger,
				Metrics:  appMetrics,
				Interval: cfg.OverdueInterval,
			})
			if err != nil {
				stop()
				_ = g.Wait()
				_ = storage.ReleaseServerLock(lockPath)
				fail(err)
			}
			g.Go(func() error { return overdue.Run(ctx) })
		}

		if !jsonOutput {
			fmt.Printf("%s Serving governance API on %s\n", green("✓"), cyan(addr))
		}
		if err := g.Wait(); err != nil {
			logger.Error("server stopped", "error", err)
			_ = storage.ReleaseServerLock(lockPath)
			fail(err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: listen_addr from config)")
	rootCmd.AddCommand(serveCmd)
}
