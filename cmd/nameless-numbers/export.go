package main

import (
	"io"

	"github.com/ritzau/nameless-numbers/pkg/export"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		ticks int
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every diagram as a standalone HTML page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, sched, cleanup, err := headlessPage(cfg.Diagrams)
			if err != nil {
				return err
			}
			defer cleanup()

			// Start the charts from a settled layout
			sched.Advance(ticks)

			return writeOutput(out, func(w io.Writer) error {
				return export.Page(w, page.List())
			})
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 300, "Layout steps to run before exporting")
	cmd.Flags().StringVarP(&out, "out", "o", "nameless-numbers.html", "Output file (- for stdout)")
	return cmd
}
