package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"github.com/ritzau/nameless-numbers/pkg/watcher"
	"github.com/ritzau/nameless-numbers/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	reloadQuietPeriod = 200 * time.Millisecond
	reloadMaxWait     = 2 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagrams as a live web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd.Flags())
		},
	}

	cmd.Flags().Int("port", 8080, "Port for the web server")
	cmd.Flags().Int("fps", 30, "Layout frames per second")
	cmd.Flags().Bool("watch", false, "Reload the diagrams when the config file changes")
	return cmd
}

func serve(ctx context.Context, flags *pflag.FlagSet) error {
	loop := scheduler.NewLoop(cfg.FPS)
	pub := pubsub.NewSSEPublisher()
	src, seed := newSource(cfg.Seed)
	logging.Info("starting", "fps", cfg.FPS, "seed", seed)

	page := diagram.NewPage(loop, pub, src, seed)
	defer page.Close()
	if err := page.Load(cfg.Diagrams); err != nil {
		logging.Warn("some diagrams failed to build", "error", err)
	}

	server := web.NewServer(page, pub)
	if err := page.PublishReloaded(); err != nil {
		logging.Warn("failed to publish page", "error", err)
	}

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("frame loop stopped", "error", err)
		}
	}()

	if cfg.Watch {
		if err := watchConfig(ctx, flags, page); err != nil {
			logging.Warn("config watching disabled", "error", err)
		}
	}

	return server.Start(ctx, cfg.Port)
}

// watchConfig reloads the page whenever the config file settles after a change
func watchConfig(ctx context.Context, flags *pflag.FlagSet, page *diagram.Page) error {
	cw, err := watcher.NewConfigWatcher(cfg.File)
	if err != nil {
		return err
	}
	if err := cw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(cw.Events(), reloadQuietPeriod, reloadMaxWait)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			plan := watcher.AnalyzeChanges(event)
			if !plan.Reload {
				logging.Info(plan.Reason, "files", plan.ChangedFiles)
				continue
			}
			reload(flags, page, plan)
		}
	}()
	return nil
}

func reload(flags *pflag.FlagSet, page *diagram.Page, plan *watcher.ReloadPlan) {
	next, err := config.Load(flags)
	if err != nil {
		logging.Warn("config reload failed, keeping current diagrams", "error", err)
		return
	}
	logging.SetLevel(logging.ParseLevel(next.Verbosity, next.VerboseCnt))

	logging.Info(plan.Reason, "files", plan.ChangedFiles)
	if err := page.Load(next.Diagrams); err != nil {
		logging.Warn("some diagrams failed to build", "error", err)
	}
	if err := page.PublishReloaded(); err != nil {
		logging.Warn("failed to publish reload", "error", err)
	}
}
