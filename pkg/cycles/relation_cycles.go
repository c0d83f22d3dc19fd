package cycles

import (
	"sort"

	"github.com/ritzau/nameless-numbers/pkg/graph"
)

// Cycle is a set of nodes that can all reach each other through links
type Cycle struct {
	Nodes []int `json:"nodes"`
}

// FindCycles returns the cycles of a relation graph, ordered by their smallest node.
// Self-loops are not reported here; see RelationGraph.SelfLoops.
func FindCycles(rg *graph.RelationGraph) []Cycle {
	sccs := NewTarjanSCC(rg.Graph()).FindSCCs()

	cycles := make([]Cycle, 0, len(sccs))
	for _, scc := range sccs {
		nodes := make([]int, len(scc))
		for i, id := range scc {
			nodes[i] = int(id)
		}
		cycles = append(cycles, Cycle{Nodes: nodes})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Nodes[0] < cycles[j].Nodes[0]
	})
	return cycles
}
