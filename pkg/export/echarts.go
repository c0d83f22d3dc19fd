// Package export writes diagrams as a standalone go-echarts HTML page. The
// page runs its own force layout in the browser and needs no server.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/render"
)

// PageTitle is the HTML title of an exported page
const PageTitle = "Nameless numbers"

// Page renders one force graph per diagram to w
func Page(w io.Writer, diagrams []*diagram.Diagram) error {
	page := components.NewPage()
	page.PageTitle = PageTitle

	for _, d := range diagrams {
		page.AddCharts(Chart(d))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render export page: %w", err)
	}
	return nil
}

// Chart builds the force graph of a single diagram, starting from the
// positions of its last frame
func Chart(d *diagram.Diagram) *charts.Graph {
	style := render.DefaultStyle()
	frame := d.Handle().Frame()
	options := d.Handle().Options()

	positions := make(map[int]render.Circle, len(frame.Circles))
	for _, c := range frame.Circles {
		positions[c.ID] = c
	}

	nodes := make([]opts.GraphNode, 0, len(d.Built.Nodes))
	for _, n := range d.Built.Nodes {
		radius := render.NodeRadius(n)
		fill := style.NodeStroke
		if n.Labeled() {
			fill = style.Background
		}

		node := opts.GraphNode{
			Name:       strconv.Itoa(n.ID),
			SymbolSize: 2 * radius,
			ItemStyle: &opts.ItemStyle{
				Color:       fill,
				BorderColor: style.NodeStroke,
				BorderWidth: float32(style.StrokeWidth),
			},
		}
		if c, ok := positions[n.ID]; ok {
			node.X = float32(c.X)
			node.Y = float32(c.Y)
		}
		nodes = append(nodes, node)
	}

	links := make([]opts.GraphLink, 0, len(d.Built.Links))
	for _, l := range d.Built.Links {
		links = append(links, opts.GraphLink{
			Source: strconv.Itoa(l.Source),
			Target: strconv.Itoa(l.Target),
			LineStyle: &opts.LineStyle{
				Color:     style.LinkColor(l.Label),
				Width:     float32(style.StrokeWidth) / 2,
				Curveness: 0.3,
				Opacity:   float32(style.Opacity),
			},
		})
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: PageTitle,
			ChartID:   "diagram-" + d.Config.ID,
			Width:     fmt.Sprintf("%dpx", int(d.Config.Width)),
			Height:    fmt.Sprintf("%dpx", int(d.Config.Height)),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: d.Config.Title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(false),
		}),
	)
	graph.AddSeries(
		d.Config.ID,
		nodes,
		links,
		charts.WithGraphChartOpts(
			opts.GraphChart{
				Layout:         "force",
				Draggable:      opts.Bool(d.Config.Draggable),
				Roam:           opts.Bool(false),
				EdgeSymbol:     []string{"none", "arrow"},
				EdgeSymbolSize: 6,
				Force: &opts.GraphForce{
					Repulsion:  float32(-d.Config.Charge) * 10,
					Gravity:    float32(d.Config.Gravity),
					EdgeLength: float32(options.LinkDistance),
				},
			},
		),
		charts.WithLabelOpts(opts.Label{
			Show:     opts.Bool(d.Config.Labels),
			Color:    style.TextColor,
			Position: "inside",
		}),
	)
	return graph
}
