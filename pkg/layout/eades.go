package layout

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/graph"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	gonumlayout "gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	eadesUpdates = 120
	eadesRate    = 0.05
	eadesTheta   = 0.2
)

// Eades runs gonum's Eades spring embedder over the undirected relation graph.
// The embedder works in unit space; positions are scaled by the link distance
// and centred in the viewport. It cannot pin nodes, so it is never draggable.
type Eades struct {
	mu        sync.Mutex
	sched     scheduler.Scheduler
	cancel    func()
	eades     *gonumlayout.EadesR2
	optimizer gonumlayout.OptimizerR2
	ids       []int
	center    r2.Vec
	scale     float64
	settled   bool
	tick      int
	listeners []TickFunc
}

// NewEades creates an Eades engine. It does not start ticking.
func NewEades(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (*Eades, error) {
	rg, err := graph.Build(nodes, links)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownNode, err)
	}

	e := &Eades{
		sched:  sched,
		center: cfg.Center(),
		scale:  orDefault(cfg.LinkDistance, defaultLinkDistance),
		eades: &gonumlayout.EadesR2{
			Repulsion: repulsionFromCharge(cfg.Charge),
			Rate:      eadesRate,
			Updates:   eadesUpdates,
			Theta:     eadesTheta,
			Src:       rand.NewPCG(cfg.RandSeed, cfg.RandSeed+1),
		},
	}
	for _, n := range nodes {
		e.ids = append(e.ids, n.ID)
	}
	sort.Ints(e.ids)

	e.optimizer = gonumlayout.NewOptimizerR2(byID{rg.Undirected()}, e.eades.Update)

	// The first update places every node, so Snapshot is meaningful before Start
	e.settled = !e.optimizer.Update()
	return e, nil
}

// repulsionFromCharge maps a d3-style charge (-30 is the usual default) to the
// Eades repulsion constant (1 is the usual default)
func repulsionFromCharge(charge float64) float64 {
	if charge >= 0 {
		return 0.1
	}
	return -charge / 30
}

// Start registers with the scheduler and resumes a settled layout
func (e *Eades) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.settled {
		e.eades.Updates = eadesUpdates
		e.settled = false
	}
	if e.cancel == nil {
		e.cancel = e.sched.Every(e.step)
	}
}

// Stop unregisters from the scheduler
func (e *Eades) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Running reports whether the engine is registered with its scheduler
func (e *Eades) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// Settled reports whether the embedder has used up its updates
func (e *Eades) Settled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settled
}

// OnTick registers a tick listener
func (e *Eades) OnTick(fn TickFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// SetParameter supports LinkDistance and Charge
func (e *Eades) SetParameter(p Parameter, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, p, value)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch p {
	case LinkDistance:
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidValue, p, value)
		}
		e.scale = value
	case Charge:
		e.eades.Repulsion = repulsionFromCharge(value)
	default:
		return fmt.Errorf("%w: %q is not supported by the eades engine", ErrUnknownParameter, p)
	}
	return nil
}

// Snapshot returns the current positions in viewport coordinates
func (e *Eades) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Eades) snapshotLocked() Snapshot {
	raw := make(map[int]r2.Vec, len(e.ids))
	var centroid r2.Vec
	for _, id := range e.ids {
		p := e.optimizer.Coord2(int64(id))
		raw[id] = p
		centroid = r2.Add(centroid, p)
	}
	if len(e.ids) > 0 {
		centroid = r2.Scale(1/float64(len(e.ids)), centroid)
	}

	positions := make(map[int]r2.Vec, len(raw))
	for id, p := range raw {
		positions[id] = r2.Add(e.center, r2.Scale(e.scale, r2.Sub(p, centroid)))
	}

	// Report progress through the update budget the way Force reports alpha
	alpha := float64(e.eades.Updates) / eadesUpdates
	return Snapshot{Tick: e.tick, Alpha: alpha, Positions: positions}
}

func (e *Eades) step() {
	e.mu.Lock()
	if e.settled {
		e.mu.Unlock()
		return
	}

	e.settled = !e.optimizer.Update()
	e.tick++
	snap := e.snapshotLocked()
	listeners := append([]TickFunc(nil), e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// byID iterates nodes and neighbours in id order. The embedder draws its
// initial positions in iteration order, so this keeps a seed reproducible.
type byID struct {
	gonumgraph.Undirected
}

func (g byID) Nodes() gonumgraph.Nodes {
	return sortedNodes(g.Undirected.Nodes())
}

func (g byID) From(id int64) gonumgraph.Nodes {
	return sortedNodes(g.Undirected.From(id))
}

func sortedNodes(it gonumgraph.Nodes) gonumgraph.Nodes {
	nodes := gonumgraph.NodesOf(it)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}
