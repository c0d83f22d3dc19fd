package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in ID order so results are stable between runs.
type TarjanSCC struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		stack:   make([]int64, 0),
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
		sccs:    make([][]int64, 0),
	}
}

// FindSCCs returns every component with more than one node
func (t *TarjanSCC) FindSCCs() [][]int64 {
	for _, id := range sortedIDs(t.graph.Nodes()) {
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

func (t *TarjanSCC) strongConnect(nodeID int64) {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	for _, succID := range sortedIDs(t.graph.From(nodeID)) {
		if _, visited := t.indices[succID]; !visited {
			t.strongConnect(succID)
			t.lowLink[nodeID] = min(t.lowLink[nodeID], t.lowLink[succID])
		} else if t.onStack[succID] {
			t.lowLink[nodeID] = min(t.lowLink[nodeID], t.indices[succID])
		}
	}

	// Root of a component: pop it off the stack
	if t.lowLink[nodeID] == t.indices[nodeID] {
		scc := make([]int64, 0)
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == nodeID {
				break
			}
		}
		if len(scc) > 1 {
			sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
			t.sccs = append(t.sccs, scc)
		}
	}
}

func sortedIDs(nodes graph.Nodes) []int64 {
	var ids []int64
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
