package diagram

import (
	"github.com/ritzau/nameless-numbers/pkg/cycles"
	"github.com/ritzau/nameless-numbers/pkg/graph"
	"github.com/ritzau/nameless-numbers/pkg/relations"
)

// Summary describes the structure of a diagram
type Summary struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Nodes     int            `json:"nodes"`
	Labeled   bool           `json:"labeled"`
	Links     int            `json:"links"`
	ByLabel   map[string]int `json:"byLabel"`
	Expected  int            `json:"expected"` // closed-form link count of the relations
	SelfLoops int            `json:"selfLoops"`
	Cycles    [][]int        `json:"cycles"`
	Engine    string         `json:"engine"`
	Draggable bool           `json:"draggable"`
	State     string         `json:"state"`
}

// summarize computes everything but the state, which changes over time
func summarize(d *Diagram) (Summary, error) {
	s := Summary{
		ID:        d.Config.ID,
		Title:     d.Config.Title,
		Nodes:     len(d.Built.Nodes),
		Labeled:   d.Config.Labels,
		Links:     len(d.Built.Links),
		ByLabel:   make(map[string]int),
		Engine:    d.Config.Engine,
		Draggable: d.Config.Draggable,
		Cycles:    make([][]int, 0),
	}

	for _, l := range d.Built.Links {
		s.ByLabel[l.Label]++
	}
	for _, rel := range d.Built.Relations {
		s.Expected += relations.ExpectedLinkCount(rel, s.Nodes)
	}

	rg, err := graph.Build(d.Built.Nodes, d.Built.Links)
	if err != nil {
		return Summary{}, err
	}
	s.SelfLoops = len(rg.SelfLoops())
	for _, c := range cycles.FindCycles(rg) {
		s.Cycles = append(s.Cycles, c.Nodes)
	}
	return s, nil
}
