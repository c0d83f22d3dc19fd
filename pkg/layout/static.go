package layout

import (
	"fmt"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

// Static keeps nodes where they were seeded. It emits one tick after Start
// and after every pin change, then stays quiet. Unseeded nodes sit on the
// same spiral Force starts from.
type Static struct {
	mu        sync.Mutex
	sched     scheduler.Scheduler
	cancel    func()
	positions map[int]r2.Vec
	home      map[int]r2.Vec
	dirty     bool
	tick      int
	listeners []TickFunc
}

// NewStatic creates a static engine. Links are checked but otherwise ignored.
func NewStatic(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (*Static, error) {
	s := &Static{
		sched:     sched,
		positions: make(map[int]r2.Vec, len(nodes)),
		dirty:     true,
	}
	for i, n := range nodes {
		p, ok := cfg.Seeds[n.ID]
		if !ok {
			p = initialPosition(i, cfg.Center())
		}
		s.positions[n.ID] = p
	}
	for _, l := range links {
		if _, ok := s.positions[l.Source]; !ok {
			return nil, fmt.Errorf("%w: link source %d", ErrUnknownNode, l.Source)
		}
		if _, ok := s.positions[l.Target]; !ok {
			return nil, fmt.Errorf("%w: link target %d", ErrUnknownNode, l.Target)
		}
	}
	s.home = copyPositions(s.positions)
	return s, nil
}

func (s *Static) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	if s.cancel == nil {
		s.cancel = s.sched.Every(s.step)
	}
}

func (s *Static) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Static) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Static) OnTick(fn TickFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetParameter accepts every known parameter and ignores it
func (s *Static) SetParameter(p Parameter, value float64) error {
	switch p {
	case LinkDistance, Charge, Gravity, AlphaTarget:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownParameter, p)
}

// Pin moves a node; it stays there after Unpin
func (s *Static) Pin(id int, pos r2.Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	s.positions[id] = pos
	s.dirty = true
	return nil
}

func (s *Static) Unpin(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return nil
}

// Reset puts every node back on its seed
func (s *Static) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = copyPositions(s.home)
	s.dirty = true
}

func (s *Static) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Tick: s.tick, Positions: copyPositions(s.positions)}
}

func (s *Static) step() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	s.tick++
	snap := Snapshot{Tick: s.tick, Positions: copyPositions(s.positions)}
	listeners := append([]TickFunc(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
