package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"github.com/spf13/cobra"
)

// cfg is loaded once flags are parsed, before any command runs
var cfg *config.Config

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nameless-numbers",
		Short: "Interactive diagrams of the natural numbers",
		Long: `Draws small relation diagrams over the numbers 0..n-1 (successor,
predecessor, less than) with a force-directed layout, and serves them as
live SVG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cfg = c
			logging.SetLevel(logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt))
			logging.Debug("configuration loaded", "file", cfg.File, "diagrams", len(cfg.Diagrams))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "Path to the TOML config file")
	flags.Uint64("seed", 0, "Random seed for scattered diagrams and layouts (0 picks one)")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: error, warn, info, debug or trace")

	cmd.AddCommand(
		serveCmd(),
		renderCmd(),
		exportCmd(),
		listCmd(),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return rootCmd().Execute()
}

// newSource returns the random source for a seed. Seed 0 is replaced by
// the clock so that scattered diagrams differ between runs.
func newSource(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1)), seed
}

// headlessPage loads diagrams on a manual scheduler. Nothing ticks until the
// caller advances it.
func headlessPage(cfgs []config.DiagramConfig) (*diagram.Page, *scheduler.Manual, func(), error) {
	sched := scheduler.NewManual()
	pub := pubsub.NewSSEPublisher()
	src, seed := newSource(cfg.Seed)
	page := diagram.NewPage(sched, pub, src, seed)

	cleanup := func() {
		page.Close()
		_ = pub.Close()
	}

	if err := page.Load(cfgs); err != nil && len(page.List()) == 0 {
		cleanup()
		return nil, nil, nil, err
	}
	return page, sched, cleanup, nil
}

// findDiagram looks up a configured diagram by id
func findDiagram(id string) (config.DiagramConfig, error) {
	ids := make([]string, 0, len(cfg.Diagrams))
	for _, d := range cfg.Diagrams {
		if d.ID == id {
			return d, nil
		}
		ids = append(ids, d.ID)
	}
	return config.DiagramConfig{}, fmt.Errorf("unknown diagram %q (have %s)", id, strings.Join(ids, ", "))
}
