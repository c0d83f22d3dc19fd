package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/relations"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestForce(t *testing.T, sched scheduler.Scheduler, n int, rel relations.Kind, cfg Config) *Force {
	t.Helper()
	nodes := relations.BuildNodes(n, true)
	links, err := relations.BuildLinks(nodes, relations.Relation{Kind: rel})
	if err != nil {
		t.Fatalf("BuildLinks() error = %v", err)
	}
	f, err := NewForce(sched, nodes, links, cfg)
	if err != nil {
		t.Fatalf("NewForce() error = %v", err)
	}
	return f
}

func assertFinite(t *testing.T, s Snapshot) {
	t.Helper()
	for id, p := range s.Positions {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			t.Fatalf("Node %d has non-finite position %v", id, p)
		}
	}
}

func TestForceTicksOnlyWhileRunning(t *testing.T) {
	sched := scheduler.NewManual()
	f := newTestForce(t, sched, 4, relations.Successor, Config{Width: 200, Height: 200, Charge: -30, Gravity: 0.1})

	ticks := 0
	f.OnTick(func(Snapshot) { ticks++ })

	sched.Advance(5)
	if ticks != 0 {
		t.Errorf("Expected no ticks before Start, got %d", ticks)
	}

	f.Start()
	if !f.Running() {
		t.Error("Expected engine to be running after Start")
	}
	sched.Advance(5)
	if ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", ticks)
	}

	f.Stop()
	sched.Advance(5)
	if ticks != 5 {
		t.Errorf("Expected ticks to stop after Stop, got %d", ticks)
	}
	if sched.Registered() != 0 {
		t.Errorf("Expected Stop to unregister, %d callbacks left", sched.Registered())
	}
}

func TestForceSettles(t *testing.T) {
	sched := scheduler.NewManual()
	f := newTestForce(t, sched, 6, relations.Successor, Config{Width: 300, Height: 300, Charge: -60, Gravity: 0.1})

	ticks := 0
	var last Snapshot
	f.OnTick(func(s Snapshot) {
		ticks++
		last = s
	})

	f.Start()
	sched.Advance(400)

	if !f.Settled() {
		t.Fatalf("Expected layout to settle, alpha=%v", last.Alpha)
	}
	if ticks < 290 || ticks > 310 {
		t.Errorf("Expected about 300 ticks before settling, got %d", ticks)
	}
	assertFinite(t, last)

	// Settled but still registered: frames are skipped, not errors
	settledTicks := ticks
	sched.Advance(50)
	if ticks != settledTicks {
		t.Errorf("Expected no ticks once settled, got %d more", ticks-settledTicks)
	}
	if !f.Running() {
		t.Error("Settling should not stop the engine")
	}

	// Start reheats
	f.Start()
	sched.Advance(1)
	if ticks != settledTicks+1 {
		t.Error("Expected Start to reheat a settled layout")
	}
}

func TestForceSpringReachesLinkDistance(t *testing.T) {
	sched := scheduler.NewManual()
	f := newTestForce(t, sched, 2, relations.Successor, Config{Width: 200, Height: 200, LinkDistance: 60})

	f.Start()
	sched.Advance(400)

	s := f.Snapshot()
	d := r2.Norm(r2.Sub(s.Positions[0], s.Positions[1]))
	if math.Abs(d-60) > 1.5 {
		t.Errorf("Expected nodes about 60 apart, got %.2f", d)
	}
}

func TestForceChargeSeparatesNodes(t *testing.T) {
	sched := scheduler.NewManual()
	seeds := map[int]r2.Vec{0: {X: 100, Y: 100}, 1: {X: 101, Y: 100}}
	f, err := NewForce(sched, relations.BuildNodes(2, false), nil, Config{Width: 200, Height: 200, Charge: -100, Seeds: seeds})
	if err != nil {
		t.Fatalf("NewForce() error = %v", err)
	}

	f.Start()
	sched.Advance(50)

	s := f.Snapshot()
	if d := r2.Norm(r2.Sub(s.Positions[0], s.Positions[1])); d < 10 {
		t.Errorf("Expected repulsion to push nodes apart, distance %.2f", d)
	}
}

func TestForceCoincidentSeedsStayFinite(t *testing.T) {
	sched := scheduler.NewManual()
	seeds := map[int]r2.Vec{0: {X: 50, Y: 50}, 1: {X: 50, Y: 50}, 2: {X: 50, Y: 50}}
	nodes := relations.BuildNodes(3, false)
	links := []model.Link{{Source: 0, Target: 1}, {Source: 1, Target: 1}}
	f, err := NewForce(sched, nodes, links, Config{Width: 100, Height: 100, Charge: -30, Gravity: 0.1, Seeds: seeds})
	if err != nil {
		t.Fatalf("NewForce() error = %v", err)
	}

	f.Start()
	for i := 0; i < 20; i++ {
		sched.Advance(1)
		assertFinite(t, f.Snapshot())
	}
}

func TestForcePin(t *testing.T) {
	sched := scheduler.NewManual()
	f := newTestForce(t, sched, 5, relations.AllPairsLessThan, Config{Width: 200, Height: 200, Charge: -30, Gravity: 0.1})

	pin := r2.Vec{X: 10, Y: 20}
	if err := f.Pin(2, pin); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}

	f.Start()
	sched.Advance(30)
	if got := f.Snapshot().Positions[2]; got != pin {
		t.Errorf("Pinned node moved to %v", got)
	}

	if err := f.Unpin(2); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	sched.Advance(30)
	if got := f.Snapshot().Positions[2]; got == pin {
		t.Error("Expected released node to move")
	}

	if err := f.Pin(99, pin); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestForceSetParameter(t *testing.T) {
	f := newTestForce(t, scheduler.NewManual(), 3, relations.Successor, Config{Width: 100, Height: 100})

	if err := f.SetParameter(LinkDistance, 80); err != nil {
		t.Errorf("SetParameter(LinkDistance) error = %v", err)
	}
	if err := f.SetParameter(LinkDistance, 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for zero distance, got %v", err)
	}
	if err := f.SetParameter(AlphaTarget, 2); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for alpha target 2, got %v", err)
	}
	if err := f.SetParameter(Charge, math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for NaN, got %v", err)
	}
	if err := f.SetParameter("friction", 0.9); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Expected ErrUnknownParameter, got %v", err)
	}
}

func TestForceAlphaTargetKeepsWarm(t *testing.T) {
	sched := scheduler.NewManual()
	f := newTestForce(t, sched, 3, relations.Successor, Config{Width: 100, Height: 100, Charge: -30})
	f.Start()
	sched.Advance(400)
	if !f.Settled() {
		t.Fatal("Expected layout to settle")
	}

	// A drag holds alpha up until it ends
	_ = f.SetParameter(AlphaTarget, 0.3)
	f.Start()
	sched.Advance(600)
	if f.Settled() {
		t.Error("Expected non-zero alpha target to keep the layout warm")
	}

	_ = f.SetParameter(AlphaTarget, 0)
	sched.Advance(400)
	if !f.Settled() {
		t.Error("Expected layout to settle after the alpha target is cleared")
	}
}

func TestForceUnknownLinkNode(t *testing.T) {
	_, err := NewForce(scheduler.NewManual(), relations.BuildNodes(2, false),
		[]model.Link{{Source: 0, Target: 7}}, Config{Width: 10, Height: 10})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "force", "eades", "static"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) error = %v", name, err)
		}
	}
	if _, err := ByName("spring"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}
}
