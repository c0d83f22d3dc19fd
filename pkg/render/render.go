package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/layout"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrInvalidSurface = errors.New("invalid surface")
	ErrNotDraggable   = errors.New("diagram is not draggable")
	ErrInvalidGraph   = errors.New("invalid graph")

	// ErrUnknownNode is shared with the layout engines so either side matches errors.Is
	ErrUnknownNode = layout.ErrUnknownNode
)

// dragAlphaTarget keeps the simulation warm while a node is held
const dragAlphaTarget = 0.3

// Surface is a drawable container. The Handle owns what is drawn on it.
type Surface interface {
	Size() (width, height float64)
	Draw(f Frame)
}

// State is the externally visible simulation state
type State string

const (
	Running State = "running"
	Stopped State = "stopped"
)

// Options configures one rendered diagram.
// Zero Width or Height takes the surface size; zero LinkDistance is derived
// from the node count. Zero Charge and Gravity mean no repulsion and no pull.
type Options struct {
	Width        float64
	Height       float64
	LinkDistance float64
	Charge       float64
	Gravity      float64
	Draggable    bool
	Seeds        map[int]r2.Vec
	RandSeed     uint64
	Style        Style
	Engine       layout.Factory
	Scheduler    scheduler.Scheduler
}

// Handle controls a running diagram
type Handle struct {
	mu      sync.Mutex
	engine  layout.Engine
	surface Surface
	nodes   []model.Node
	links   []model.Link
	opts    Options
	frame   Frame
	seq     int
}

// Render validates the graph, creates a layout engine and starts drawing on
// every tick. It fails without side effects; a failed diagram draws nothing.
func Render(surface Surface, nodes []model.Node, links []model.Link, opts Options) (*Handle, error) {
	if surface == nil {
		return nil, fmt.Errorf("%w: nil surface", ErrInvalidSurface)
	}
	sw, sh := surface.Size()
	if opts.Width == 0 {
		opts.Width = sw
	}
	if opts.Height == 0 {
		opts.Height = sh
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: size %vx%v", ErrInvalidSurface, opts.Width, opts.Height)
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("%w: no scheduler", ErrInvalidSurface)
	}
	if err := validate(nodes, links); err != nil {
		return nil, err
	}

	if opts.LinkDistance == 0 {
		opts.LinkDistance = AutoLinkDistance(len(nodes), opts.Width, opts.Height)
	}
	opts.Style = opts.Style.orDefault()

	factory := opts.Engine
	if factory == nil {
		var err error
		if factory, err = layout.ByName("force"); err != nil {
			return nil, err
		}
	}

	// The handle keeps its own copies; callers may reuse their slices
	h := &Handle{
		surface: surface,
		nodes:   append([]model.Node(nil), nodes...),
		links:   append([]model.Link(nil), links...),
		opts:    opts,
	}

	engine, err := factory(opts.Scheduler, h.nodes, h.links, layout.Config{
		Width:        opts.Width,
		Height:       opts.Height,
		LinkDistance: opts.LinkDistance,
		Charge:       opts.Charge,
		Gravity:      opts.Gravity,
		Seeds:        opts.Seeds,
		RandSeed:     opts.RandSeed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create layout: %w", err)
	}
	h.engine = engine

	h.draw(engine.Snapshot())
	engine.OnTick(h.draw)
	engine.Start()

	logging.Debug("rendering diagram", "nodes", len(nodes), "links", len(links), "linkDistance", opts.LinkDistance)
	return h, nil
}

func validate(nodes []model.Node, links []model.Link) error {
	seen := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidGraph, n.ID)
		}
		seen[n.ID] = true
	}
	for _, l := range links {
		if !seen[l.Source] || !seen[l.Target] {
			return fmt.Errorf("%w: link %d->%d references a missing node", ErrUnknownNode, l.Source, l.Target)
		}
	}
	return nil
}

// draw is the tick listener. The surface is called outside the handle lock.
func (h *Handle) draw(s layout.Snapshot) {
	h.mu.Lock()
	h.seq++
	f := Draw(s, h.nodes, h.links, h.opts)
	f.Seq = h.seq
	h.frame = f
	h.mu.Unlock()

	h.surface.Draw(f)
}

// Start resumes a stopped simulation
func (h *Handle) Start() {
	h.engine.Start()
}

// Stop freezes the simulation. A tick already in flight still completes.
func (h *Handle) Stop() {
	h.engine.Stop()
}

// State reports Running or Stopped. A settled layout is still Running.
func (h *Handle) State() State {
	if h.engine.Running() {
		return Running
	}
	return Stopped
}

// SetLinkDistance retunes spacing and reheats a running layout
func (h *Handle) SetLinkDistance(d float64) error {
	if err := h.engine.SetParameter(layout.LinkDistance, d); err != nil {
		return err
	}

	h.mu.Lock()
	h.opts.LinkDistance = d
	h.mu.Unlock()

	if h.engine.Running() {
		h.engine.Start()
	}
	return nil
}

// Frame returns the last drawn frame
func (h *Handle) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Options returns the effective options, after defaults were applied
func (h *Handle) Options() Options {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opts
}

// Engine exposes the layout engine driving this handle
func (h *Handle) Engine() layout.Engine {
	return h.engine
}

func (h *Handle) pinner() (layout.Pinner, error) {
	if !h.opts.Draggable {
		return nil, ErrNotDraggable
	}
	p, ok := h.engine.(layout.Pinner)
	if !ok {
		return nil, fmt.Errorf("%w: layout engine cannot pin nodes", ErrNotDraggable)
	}
	return p, nil
}

// DragStart pins a node to the pointer and keeps the layout warm until DragEnd
func (h *Handle) DragStart(id int, x, y float64) error {
	p, err := h.pinner()
	if err != nil {
		return err
	}
	if err := p.Pin(id, r2.Vec{X: x, Y: y}); err != nil {
		return err
	}
	if err := h.engine.SetParameter(layout.AlphaTarget, dragAlphaTarget); err != nil {
		return err
	}
	h.engine.Start()
	return nil
}

// DragMove moves a pinned node with the pointer
func (h *Handle) DragMove(id int, x, y float64) error {
	p, err := h.pinner()
	if err != nil {
		return err
	}
	return p.Pin(id, r2.Vec{X: x, Y: y})
}

// DragEnd releases the node back to the simulation
func (h *Handle) DragEnd(id int) error {
	p, err := h.pinner()
	if err != nil {
		return err
	}
	if err := h.engine.SetParameter(layout.AlphaTarget, 0); err != nil {
		return err
	}
	return p.Unpin(id)
}
