package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
)

// PrintSummaries prints a colored table of the diagrams on a page followed
// by the diagrams that failed to build
func PrintSummaries(w io.Writer, summaries []diagram.Summary, failed map[string]error) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Nameless Numbers - Diagrams")
	bold.Fprintln(w, "===========================")
	fmt.Fprintf(w, "Loaded: %d diagram(s)\n", len(summaries))
	if len(failed) > 0 {
		yellow.Fprintf(w, "Failed: %d diagram(s)\n", len(failed))
	}
	fmt.Fprintln(w)

	for _, s := range summaries {
		cyan.Fprintf(w, "%-20s", s.ID)
		fmt.Fprintf(w, " %3d nodes  %3d links  engine=%s", s.Nodes, s.Links, s.Engine)
		if s.Draggable {
			fmt.Fprint(w, "  draggable")
		}
		fmt.Fprintln(w)

		if len(s.ByLabel) > 0 {
			fmt.Fprintf(w, "    Relations: %s\n", formatCounts(s.ByLabel))
		}
		if s.Links != s.Expected {
			red.Fprintf(w, "    Expected %d links, built %d\n", s.Expected, s.Links)
		}
		if s.SelfLoops > 0 {
			fmt.Fprintf(w, "    Self-loops: %d\n", s.SelfLoops)
		}
		for _, c := range s.Cycles {
			yellow.Fprintf(w, "    Cycle: %s\n", formatCycle(c))
		}
	}

	if len(failed) > 0 {
		fmt.Fprintln(w)
		red.Fprintln(w, "FAILED DIAGRAMS:")
		ids := make([]string, 0, len(failed))
		for id := range failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			yellow.Fprintf(w, "  %s\n", id)
			fmt.Fprintf(w, "    %v\n", failed[id])
		}
		return
	}

	if len(summaries) > 0 {
		green.Fprintln(w, "✓ All diagrams built")
	}
}

// formatCounts renders label counts in a stable order, e.g. "pred=7 succ=7"
func formatCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}
	return strings.Join(parts, " ")
}

func formatCycle(nodes []int) string {
	parts := make([]string, 0, len(nodes)+1)
	for _, n := range nodes {
		parts = append(parts, fmt.Sprint(n))
	}
	if len(nodes) > 0 {
		parts = append(parts, fmt.Sprint(nodes[0]))
	}
	return strings.Join(parts, " -> ")
}
