package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/curtiv3/gpthome-refurbished/internal/auth"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/scheduler"
	"github.com/curtiv3/gpthome-refurbished/internal/server"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
)

// serveCmd runs the HTTP surface and the wake scheduler
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and wake on schedule",
	Long: `Starts the HTTP surface, the wake scheduler and the prompt watcher.
Edits to the prompt override and the resident's own prompt layer take effect
on the next wake without a restart. SIGINT or SIGTERM shuts everything down.`,
	RunE: runServe,
}

var noScheduler bool

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve without scheduled wakes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{
		Store:   a.store,
		Waker:   a.wake,
		Echo:    a.echo,
		Auth:    auth.FromConfig(cfg),
		Observe: a.metrics,
	}
	if cfg.Server.EnableMetrics {
		deps.Metrics = a.metrics.Handler()
	}
	if cfg.Server.AdminSecret == "" {
		logging.ServerWarn("No admin secret configured: admin endpoints are disabled")
	}
	srv := server.New(server.DepsFromConfig(cfg, deps))

	watcher, err := wake.NewPromptWatcher(a.prompts)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if !noScheduler {
		sched, err = scheduler.New(cfg.Wake.Times, cfg.Location(), func(ctx context.Context) error {
			_, err := a.wake.Wake(ctx, "scheduled")
			return err
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, server.OptionsFromConfig(cfg))
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	if sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	logging.Boot("gpthome serving on %s (mode=%s)", cfg.Server.Addr, a.mode)
	err = g.Wait()
	logging.Boot("gpthome stopped")
	return err
}
