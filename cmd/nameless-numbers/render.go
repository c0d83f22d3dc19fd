package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/layout"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/render"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		ticks int
		out   string
	)

	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Run a diagram's layout without a server and write the SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := renderHeadless(args[0], ticks)
			if err != nil {
				return err
			}
			return writeOutput(out, func(w io.Writer) error {
				render.SVG(w, f)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 300, "Layout steps to run before drawing")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file (- for stdout)")
	return cmd
}

// renderHeadless builds one diagram on a manual scheduler and advances it
func renderHeadless(id string, ticks int) (render.Frame, error) {
	dc, err := findDiagram(id)
	if err != nil {
		return render.Frame{}, err
	}
	dc = dc.Normalize()

	src, seed := newSource(cfg.Seed)
	built, err := diagram.Build(dc, src)
	if err != nil {
		return render.Frame{}, err
	}
	engine, err := layout.ByName(dc.Engine)
	if err != nil {
		return render.Frame{}, err
	}

	sched := scheduler.NewManual()
	rec := render.NewRecorder(dc.Width, dc.Height, 1)
	h, err := render.Render(rec, built.Nodes, built.Links, render.Options{
		LinkDistance: dc.LinkDistance,
		Charge:       dc.Charge,
		Gravity:      dc.Gravity,
		Seeds:        built.Seeds,
		RandSeed:     seed,
		Engine:       engine,
		Scheduler:    sched,
	})
	if err != nil {
		return render.Frame{}, fmt.Errorf("diagram %s: %w", id, err)
	}
	defer h.Stop()

	sched.Advance(ticks)

	f, ok := rec.Last()
	if !ok {
		return render.Frame{}, fmt.Errorf("diagram %s: nothing was drawn", id)
	}
	logging.Debug("rendered", "id", id, "tick", f.Tick, "alpha", f.Alpha)
	return f, nil
}

// writeOutput writes to a file, or to stdout for "-"
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("wrote output", "path", path)
	return nil
}
