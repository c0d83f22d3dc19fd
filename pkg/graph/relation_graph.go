package graph

import (
	"fmt"
	"sort"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// RelationGraph is the directed graph formed by a diagram's nodes and links.
// Node IDs are used directly as gonum IDs. Self-loops are counted but not
// inserted, since simple graphs reject them.
type RelationGraph struct {
	graph     *simple.DirectedGraph
	nodes     map[int64]model.Node
	labels    map[[2]int64][]string // (from, to) -> link labels
	selfLoops []model.Link
}

// NewRelationGraph creates an empty relation graph
func NewRelationGraph() *RelationGraph {
	return &RelationGraph{
		graph:  simple.NewDirectedGraph(),
		nodes:  make(map[int64]model.Node),
		labels: make(map[[2]int64][]string),
	}
}

// Build creates a relation graph from a node list and its links.
// It fails if a link references a node that is not in the list.
func Build(nodes []model.Node, links []model.Link) (*RelationGraph, error) {
	rg := NewRelationGraph()
	for _, n := range nodes {
		rg.AddNode(n)
	}
	for _, l := range links {
		if err := rg.AddLink(l); err != nil {
			return nil, err
		}
	}
	return rg, nil
}

// AddNode adds a node to the graph
func (rg *RelationGraph) AddNode(n model.Node) {
	id := int64(n.ID)
	if _, exists := rg.nodes[id]; exists {
		return
	}
	rg.nodes[id] = n
	rg.graph.AddNode(simple.Node(id))
}

// AddLink adds a directed edge. Parallel links with different labels share one edge.
func (rg *RelationGraph) AddLink(l model.Link) error {
	from, to := int64(l.Source), int64(l.Target)
	if _, ok := rg.nodes[from]; !ok {
		return fmt.Errorf("link %d->%d: unknown source node %d", l.Source, l.Target, l.Source)
	}
	if _, ok := rg.nodes[to]; !ok {
		return fmt.Errorf("link %d->%d: unknown target node %d", l.Source, l.Target, l.Target)
	}

	if from == to {
		rg.selfLoops = append(rg.selfLoops, l)
		return nil
	}

	// Add edge if it doesn't already exist
	if !rg.graph.HasEdgeFromTo(from, to) {
		rg.graph.SetEdge(rg.graph.NewEdge(rg.graph.Node(from), rg.graph.Node(to)))
	}
	key := [2]int64{from, to}
	rg.labels[key] = append(rg.labels[key], l.Label)
	return nil
}

// Graph returns the underlying directed graph
func (rg *RelationGraph) Graph() *simple.DirectedGraph {
	return rg.graph
}

// Node returns the model node for a gonum ID
func (rg *RelationGraph) Node(id int64) (model.Node, bool) {
	n, ok := rg.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID
func (rg *RelationGraph) Nodes() []model.Node {
	nodes := make([]model.Node, 0, len(rg.nodes))
	for _, n := range rg.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all non-loop edges as [source, target] pairs, sorted
func (rg *RelationGraph) Edges() [][2]int {
	var edges [][2]int
	iter := rg.graph.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]int{int(e.From().ID()), int(e.To().ID())})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Labels returns the labels of the links from source to target
func (rg *RelationGraph) Labels(source, target int) []string {
	return rg.labels[[2]int64{int64(source), int64(target)}]
}

// SelfLoops returns the links whose source equals their target
func (rg *RelationGraph) SelfLoops() []model.Link {
	return rg.selfLoops
}

// Successors returns the IDs a node links to, sorted
func (rg *RelationGraph) Successors(id int) []int {
	if rg.graph.Node(int64(id)) == nil {
		return nil
	}
	var succ []int
	iter := rg.graph.From(int64(id))
	for iter.Next() {
		succ = append(succ, int(iter.Node().ID()))
	}
	sort.Ints(succ)
	return succ
}

// Undirected returns the graph with edge directions dropped.
// Opposite links (succ/pred) collapse into a single edge.
func (rg *RelationGraph) Undirected() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	nodes := rg.graph.Nodes()
	for nodes.Next() {
		ug.AddNode(simple.Node(nodes.Node().ID()))
	}
	edges := rg.graph.Edges()
	for edges.Next() {
		e := edges.Edge()
		if !ug.HasEdgeBetween(e.From().ID(), e.To().ID()) {
			ug.SetEdge(ug.NewEdge(ug.Node(e.From().ID()), ug.Node(e.To().ID())))
		}
	}
	return ug
}
