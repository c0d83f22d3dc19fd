package main

import (
	"os"

	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/output"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Summarize the configured diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _, cleanup, err := headlessPage(cfg.Diagrams)
			if err != nil {
				return err
			}
			defer cleanup()

			summaries := make([]diagram.Summary, 0)
			for _, d := range page.List() {
				summaries = append(summaries, d.Summary())
			}
			output.PrintSummaries(os.Stdout, summaries, page.Failed())
			return nil
		},
	}
}
