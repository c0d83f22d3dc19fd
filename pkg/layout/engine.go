package layout

import (
	"errors"
	"fmt"

	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownParameter = errors.New("unknown layout parameter")
	ErrInvalidValue     = errors.New("invalid layout parameter value")
	ErrUnknownNode      = errors.New("unknown node")
	ErrUnknownEngine    = errors.New("unknown layout engine")
)

// Parameter names a tunable engine setting
type Parameter string

const (
	LinkDistance Parameter = "linkDistance"
	Charge       Parameter = "charge"
	Gravity      Parameter = "gravity"
	AlphaTarget  Parameter = "alphaTarget"
)

// Snapshot is the physics state after one step
type Snapshot struct {
	Tick      int
	Alpha     float64
	Positions map[int]r2.Vec
}

// TickFunc receives a snapshot after every simulation step
type TickFunc func(Snapshot)

// Engine is a force-directed layout that advances on scheduler frames
type Engine interface {
	// Start begins or resumes ticking and reheats a settled layout
	Start()

	// Stop makes future frames skip the simulation
	Stop()

	// OnTick registers a listener called after every step
	OnTick(fn TickFunc)

	// SetParameter retunes the simulation
	SetParameter(p Parameter, value float64) error

	// Running reports whether the engine is registered with its scheduler
	Running() bool

	// Snapshot returns the current state without stepping
	Snapshot() Snapshot
}

// Pinner is implemented by engines that can hold a node at a fixed position
type Pinner interface {
	Pin(id int, pos r2.Vec) error
	Unpin(id int) error
}

// Config holds the initial settings shared by all engines
type Config struct {
	Width        float64
	Height       float64
	LinkDistance float64
	Charge       float64
	Gravity      float64
	Seeds        map[int]r2.Vec // initial positions; missing nodes get a default placement
	RandSeed     uint64
}

// Center returns the middle of the viewport
func (c Config) Center() r2.Vec {
	return r2.Vec{X: c.Width / 2, Y: c.Height / 2}
}

// Factory creates an engine for a node and link set
type Factory func(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (Engine, error)

// ByName returns the factory for an engine name ("force", "eades" or "static")
func ByName(name string) (Factory, error) {
	switch name {
	case "", "force":
		return func(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (Engine, error) {
			return NewForce(sched, nodes, links, cfg)
		}, nil
	case "eades":
		return func(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (Engine, error) {
			return NewEades(sched, nodes, links, cfg)
		}, nil
	case "static":
		return func(sched scheduler.Scheduler, nodes []model.Node, links []model.Link, cfg Config) (Engine, error) {
			return NewStatic(sched, nodes, links, cfg)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

func copyPositions(m map[int]r2.Vec) map[int]r2.Vec {
	out := make(map[int]r2.Vec, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
