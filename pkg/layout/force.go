package layout

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	defaultLinkDistance = 30.0

	alphaMin      = 0.001
	velocityDecay = 0.4
	reheatAlpha   = 0.3
	distanceMin2  = 1.0
)

// alphaDecay cools alpha from 1 to alphaMin in about 300 steps
var alphaDecay = 1 - math.Pow(alphaMin, 1.0/300)

type body struct {
	id    int
	pos   r2.Vec
	vel   r2.Vec
	fixed *r2.Vec
}

type spring struct {
	source int // index into bodies
	target int
}

// Force is a velocity Verlet simulation with link springs, many-body charge
// and a centring pull. Each scheduler frame is one step while alpha is above
// alphaMin; below it the layout is settled and frames are skipped.
type Force struct {
	mu        sync.Mutex
	sched     scheduler.Scheduler
	cancel    func()
	bodies    []body
	index     map[int]int
	springs   []spring
	degree    []int
	center    r2.Vec
	listeners []TickFunc
	rng       *rand.Rand

	linkDistance float64
	charge       float64
	gravity      float64
	alpha        float64
	alphaTarget  float64
	tick         int
}

// NewForce creates a force simulation. It does not start ticking.
func NewForce(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (*Force, error) {
	f := &Force{
		sched:        sched,
		index:        make(map[int]int, len(nodes)),
		bodies:       make([]body, len(nodes)),
		degree:       make([]int, len(nodes)),
		center:       cfg.Center(),
		rng:          rand.New(rand.NewPCG(cfg.RandSeed, cfg.RandSeed+1)),
		linkDistance: orDefault(cfg.LinkDistance, defaultLinkDistance),
		charge:       cfg.Charge,
		gravity:      cfg.Gravity,
		alpha:        1,
	}

	for i, n := range nodes {
		f.index[n.ID] = i
		f.bodies[i] = body{id: n.ID, pos: initialPosition(i, f.center)}
		if seed, ok := cfg.Seeds[n.ID]; ok {
			f.bodies[i].pos = seed
		}
	}

	for _, l := range links {
		s, ok := f.index[l.Source]
		if !ok {
			return nil, fmt.Errorf("%w: link source %d", ErrUnknownNode, l.Source)
		}
		t, ok := f.index[l.Target]
		if !ok {
			return nil, fmt.Errorf("%w: link target %d", ErrUnknownNode, l.Target)
		}
		if s == t {
			continue // a self-loop pulls on nothing
		}
		f.springs = append(f.springs, spring{source: s, target: t})
		f.degree[s]++
		f.degree[t]++
	}

	return f, nil
}

// initialPosition places node i on a phyllotaxis spiral around the centre
func initialPosition(i int, center r2.Vec) r2.Vec {
	radius := 10 * math.Sqrt(0.5+float64(i))
	angle := float64(i) * math.Pi * (3 - math.Sqrt(5))
	return r2.Vec{
		X: center.X + radius*math.Cos(angle),
		Y: center.Y + radius*math.Sin(angle),
	}
}

// Start registers with the scheduler and reheats a settled layout
func (f *Force) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.alpha < reheatAlpha {
		f.alpha = reheatAlpha
	}
	if f.cancel == nil {
		f.cancel = f.sched.Every(f.step)
	}
}

// Stop unregisters from the scheduler
func (f *Force) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Running reports whether the engine is registered with its scheduler
func (f *Force) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// Settled reports whether alpha has cooled below the stopping threshold
func (f *Force) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settledLocked()
}

func (f *Force) settledLocked() bool {
	return f.alpha < alphaMin && f.alphaTarget < alphaMin
}

// OnTick registers a tick listener
func (f *Force) OnTick(fn TickFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// SetParameter retunes the simulation
func (f *Force) SetParameter(p Parameter, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, p, value)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch p {
	case LinkDistance:
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidValue, p, value)
		}
		f.linkDistance = value
	case Charge:
		f.charge = value
	case Gravity:
		if value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidValue, p, value)
		}
		f.gravity = value
	case AlphaTarget:
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidValue, p, value)
		}
		f.alphaTarget = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParameter, p)
	}
	return nil
}

// Pin holds a node at pos until Unpin
func (f *Force) Pin(id int, pos r2.Vec) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	fixed := pos
	f.bodies[i].fixed = &fixed
	return nil
}

// Unpin releases a pinned node
func (f *Force) Unpin(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	f.bodies[i].fixed = nil
	return nil
}

// Snapshot returns the current positions
func (f *Force) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Force) snapshotLocked() Snapshot {
	positions := make(map[int]r2.Vec, len(f.bodies))
	for _, b := range f.bodies {
		positions[b.id] = b.pos
	}
	return Snapshot{Tick: f.tick, Alpha: f.alpha, Positions: positions}
}

// step advances the simulation by one frame and notifies listeners
func (f *Force) step() {
	f.mu.Lock()
	if f.settledLocked() {
		f.mu.Unlock()
		return
	}

	f.alpha += (f.alphaTarget - f.alpha) * alphaDecay
	f.applySprings()
	f.applyCharge()
	f.applyGravity()
	f.integrate()
	f.tick++

	snap := f.snapshotLocked()
	listeners := append([]TickFunc(nil), f.listeners...)
	f.mu.Unlock()

	// Listeners run outside the lock so they may call back into the engine
	for _, fn := range listeners {
		fn(snap)
	}
}

func (f *Force) applySprings() {
	for _, s := range f.springs {
		src, dst := &f.bodies[s.source], &f.bodies[s.target]

		x := dst.pos.X + dst.vel.X - src.pos.X - src.vel.X
		y := dst.pos.Y + dst.vel.Y - src.pos.Y - src.vel.Y
		if x == 0 {
			x = f.jiggle()
		}
		if y == 0 {
			y = f.jiggle()
		}

		l := math.Hypot(x, y)
		strength := 1 / float64(min(f.degree[s.source], f.degree[s.target]))
		l = (l - f.linkDistance) / l * f.alpha * strength
		x *= l
		y *= l

		bias := float64(f.degree[s.source]) / float64(f.degree[s.source]+f.degree[s.target])
		dst.vel.X -= x * bias
		dst.vel.Y -= y * bias
		src.vel.X += x * (1 - bias)
		src.vel.Y += y * (1 - bias)
	}
}

func (f *Force) applyCharge() {
	if f.charge == 0 {
		return
	}
	for i := range f.bodies {
		bi := &f.bodies[i]
		for j := range f.bodies {
			if i == j {
				continue
			}
			bj := &f.bodies[j]

			x := bj.pos.X - bi.pos.X
			y := bj.pos.Y - bi.pos.Y
			l := x*x + y*y
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}

			w := f.charge * f.alpha / l
			bi.vel.X += x * w
			bi.vel.Y += y * w
		}
	}
}

func (f *Force) applyGravity() {
	if f.gravity == 0 {
		return
	}
	k := f.gravity * f.alpha
	for i := range f.bodies {
		b := &f.bodies[i]
		b.vel = r2.Add(b.vel, r2.Scale(k, r2.Sub(f.center, b.pos)))
	}
}

func (f *Force) integrate() {
	for i := range f.bodies {
		b := &f.bodies[i]
		if b.fixed != nil {
			b.pos = *b.fixed
			b.vel = r2.Vec{}
			continue
		}
		b.vel = r2.Scale(1-velocityDecay, b.vel)
		b.pos = r2.Add(b.pos, b.vel)
	}
}

func (f *Force) jiggle() float64 {
	return (f.rng.Float64() - 0.5) * 1e-6
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
