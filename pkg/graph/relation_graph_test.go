package graph

import (
	"testing"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/relations"
)

func TestNewRelationGraph(t *testing.T) {
	rg := NewRelationGraph()
	if rg == nil {
		t.Fatal("NewRelationGraph() returned nil")
	}

	if len(rg.Nodes()) != 0 {
		t.Errorf("New graph should have 0 nodes, got %d", len(rg.Nodes()))
	}
}

func TestBuildChain(t *testing.T) {
	nodes := relations.BuildNodes(4, true)
	links, _ := relations.BuildLinks(nodes, relations.Relation{Kind: relations.Successor})

	rg, err := Build(nodes, links)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(rg.Nodes()) != 4 {
		t.Errorf("Expected 4 nodes, got %d", len(rg.Nodes()))
	}

	edges := rg.Edges()
	if len(edges) != 3 {
		t.Fatalf("Expected 3 edges, got %d", len(edges))
	}
	if edges[0] != [2]int{0, 1} || edges[2] != [2]int{2, 3} {
		t.Errorf("Unexpected edges %v", edges)
	}

	if succ := rg.Successors(1); len(succ) != 1 || succ[0] != 2 {
		t.Errorf("Expected successors of 1 to be [2], got %v", succ)
	}
	if labels := rg.Labels(0, 1); len(labels) != 1 || labels[0] != "succ" {
		t.Errorf("Expected label succ on 0->1, got %v", labels)
	}
}

func TestSelfLoopsAreCounted(t *testing.T) {
	nodes := relations.BuildNodes(3, false)
	links, _ := relations.BuildLinks(nodes, relations.Relation{Kind: relations.Equal})

	rg, err := Build(nodes, links)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(rg.SelfLoops()) != 3 {
		t.Errorf("Expected 3 self-loops, got %d", len(rg.SelfLoops()))
	}
	if len(rg.Edges()) != 0 {
		t.Errorf("Self-loops should not become gonum edges, got %v", rg.Edges())
	}
}

func TestUnknownNodeRejected(t *testing.T) {
	nodes := relations.BuildNodes(2, false)
	_, err := Build(nodes, []model.Link{{Source: 0, Target: 5, Label: "succ"}})
	if err == nil {
		t.Error("Expected error for link to unknown node")
	}
}

func TestUndirectedCollapsesOppositeLinks(t *testing.T) {
	nodes := relations.BuildNodes(5, false)
	succ, _ := relations.BuildLinks(nodes, relations.Relation{Kind: relations.Successor})
	links := append(succ, relations.PredecessorChain(nodes)...)

	rg, err := Build(nodes, links)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(rg.Edges()) != 8 {
		t.Errorf("Expected 8 directed edges, got %d", len(rg.Edges()))
	}

	ug := rg.Undirected()
	count := 0
	iter := ug.Edges()
	for iter.Next() {
		count++
	}
	if count != 4 {
		t.Errorf("Expected 4 undirected edges, got %d", count)
	}
}
