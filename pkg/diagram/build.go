package diagram

import (
	"fmt"

	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/relations"
	"github.com/ritzau/nameless-numbers/pkg/sampler"
	"gonum.org/v1/gonum/spatial/r2"
)

// Scatter grid: 15x7 cells of 32px, offset by a circle of radius 15 with a
// 2.5px stroke, which fills the default 512x256 viewport
const (
	ScatterCols   = 15
	ScatterRows   = 7
	ScatterGrid   = 32.0
	ScatterRadius = 15.0
	ScatterStroke = 2.5
)

// Built is the node and link set of one diagram, ready to render
type Built struct {
	Nodes     []model.Node
	Links     []model.Link
	Relations []relations.Relation
	Seeds     map[int]r2.Vec // nil unless the diagram scatters its nodes
}

// Build creates the nodes and links a diagram configuration describes.
// It only draws from src when the diagram scatters its nodes.
func Build(cfg config.DiagramConfig, src sampler.Source) (Built, error) {
	if cfg.Nodes < 0 {
		return Built{}, fmt.Errorf("diagram %s: negative node count %d", cfg.ID, cfg.Nodes)
	}

	b := Built{
		Nodes: relations.BuildNodes(cfg.Nodes, cfg.Labels),
		Links: make([]model.Link, 0),
	}

	for _, name := range cfg.Relations {
		kind, err := relations.ParseKind(name)
		if err != nil {
			return Built{}, fmt.Errorf("diagram %s: %w", cfg.ID, err)
		}
		rel := relations.Relation{Kind: kind}
		if kind == relations.StrictlyLessThan {
			rel.Pivot = cfg.Pivot
		}

		var links []model.Link
		if kind == relations.Predecessor {
			links = relations.PredecessorChain(b.Nodes)
		} else if links, err = relations.BuildLinks(b.Nodes, rel); err != nil {
			return Built{}, fmt.Errorf("diagram %s: %w", cfg.ID, err)
		}

		b.Links = append(b.Links, links...)
		b.Relations = append(b.Relations, rel)
	}

	if cfg.Scatter && cfg.Nodes > 0 {
		if src == nil {
			return Built{}, fmt.Errorf("diagram %s: scatter needs a random source", cfg.ID)
		}
		pairs, err := sampler.RandomPairs(src, ScatterCols, ScatterRows, cfg.Nodes)
		if err != nil {
			return Built{}, fmt.Errorf("diagram %s: %w", cfg.ID, err)
		}

		b.Seeds = make(map[int]r2.Vec, len(pairs))
		for i, p := range sampler.GridPositions(pairs, ScatterGrid, ScatterRadius, ScatterStroke) {
			b.Seeds[b.Nodes[i].ID] = r2.Vec{X: p.X, Y: p.Y}
		}
	}

	return b, nil
}
