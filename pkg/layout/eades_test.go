package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/relations"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestEadesRunsOutOfUpdates(t *testing.T) {
	sched := scheduler.NewManual()
	nodes := relations.BuildNodes(5, true)
	links, err := relations.BuildLinks(nodes, relations.Relation{Kind: relations.Successor})
	if err != nil {
		t.Fatalf("BuildLinks() error = %v", err)
	}

	e, err := NewEades(sched, nodes, links, Config{Width: 400, Height: 300, LinkDistance: 50, Charge: -30})
	if err != nil {
		t.Fatalf("NewEades() error = %v", err)
	}

	// Positions exist before the first frame
	before := e.Snapshot()
	if len(before.Positions) != 5 {
		t.Fatalf("Expected 5 positions, got %d", len(before.Positions))
	}

	ticks := 0
	e.OnTick(func(Snapshot) { ticks++ })
	e.Start()
	sched.Advance(eadesUpdates * 2)

	if ticks == 0 || ticks > eadesUpdates {
		t.Errorf("Expected between 1 and %d ticks, got %d", eadesUpdates, ticks)
	}
	if !e.Settled() {
		t.Error("Expected the embedder to settle")
	}

	s := e.Snapshot()
	var centroid r2.Vec
	for id, p := range s.Positions {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Fatalf("Node %d has non-finite position %v", id, p)
		}
		centroid = r2.Add(centroid, p)
	}
	centroid = r2.Scale(1.0/5, centroid)
	if math.Abs(centroid.X-200) > 1e-6 || math.Abs(centroid.Y-150) > 1e-6 {
		t.Errorf("Expected layout centred at (200,150), got %v", centroid)
	}

	// Start resumes a settled embedder
	settledTicks := ticks
	e.Start()
	sched.Advance(1)
	if ticks != settledTicks+1 {
		t.Error("Expected Start to resume a settled layout")
	}
}

func TestEadesSeedIsReproducible(t *testing.T) {
	nodes := relations.BuildNodes(8, false)
	links, err := relations.BuildLinks(nodes, relations.Relation{Kind: relations.Successor})
	if err != nil {
		t.Fatalf("BuildLinks() error = %v", err)
	}

	run := func(seed uint64) map[int]r2.Vec {
		sched := scheduler.NewManual()
		e, err := NewEades(sched, nodes, links, Config{Width: 400, Height: 300, RandSeed: seed})
		if err != nil {
			t.Fatalf("NewEades() error = %v", err)
		}
		e.Start()
		defer e.Stop()
		sched.Advance(20)
		return e.Snapshot().Positions
	}

	if diff := cmp.Diff(run(7), run(7)); diff != "" {
		t.Errorf("Same seed gave different layouts (-first +second):\n%s", diff)
	}
	if cmp.Equal(run(7), run(8)) {
		t.Error("Expected different seeds to give different layouts")
	}
}

func TestEadesParameters(t *testing.T) {
	e, err := NewEades(scheduler.NewManual(), relations.BuildNodes(3, false), nil, Config{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("NewEades() error = %v", err)
	}

	if err := e.SetParameter(LinkDistance, 40); err != nil {
		t.Errorf("SetParameter(LinkDistance) error = %v", err)
	}
	if err := e.SetParameter(Charge, -60); err != nil {
		t.Errorf("SetParameter(Charge) error = %v", err)
	}
	if err := e.SetParameter(AlphaTarget, 0.3); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Expected ErrUnknownParameter for alpha target, got %v", err)
	}

	// Eades cannot hold nodes still
	var engine Engine = e
	if _, ok := engine.(Pinner); ok {
		t.Error("Eades should not implement Pinner")
	}
}

func TestEadesUnknownLinkNode(t *testing.T) {
	_, err := NewEades(scheduler.NewManual(), relations.BuildNodes(2, false),
		[]model.Link{{Source: 0, Target: 5}}, Config{Width: 10, Height: 10})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestMockEngineEmitsOnlyWhileRunning(t *testing.T) {
	m := NewMockEngine(map[int]r2.Vec{0: {X: 1, Y: 1}})

	var got []int
	m.OnTick(func(s Snapshot) { got = append(got, s.Tick) })

	if m.Emit(Snapshot{Tick: 1}) {
		t.Error("Expected Emit to be ignored while stopped")
	}
	m.Start()
	m.Emit(Snapshot{Tick: 2, Positions: map[int]r2.Vec{0: {X: 3, Y: 4}}})
	m.Stop()
	m.Emit(Snapshot{Tick: 3})

	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected only tick 2 to be delivered, got %v", got)
	}
	if p := m.Snapshot().Positions[0]; p != (r2.Vec{X: 3, Y: 4}) {
		t.Errorf("Expected snapshot to follow the last emit, got %v", p)
	}
}
