package diagram

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/layout"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/render"
	"github.com/ritzau/nameless-numbers/pkg/sampler"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
)

var log = logging.New("diagram")

// Publisher is the part of the SSE publisher a page needs
type Publisher interface {
	pubsub.Publisher
	ConfigureTopic(topic string, cfg pubsub.TopicConfig)
	ForgetTopic(topic string)
}

// Diagram is one rendered diagram on the page
type Diagram struct {
	Config  config.DiagramConfig
	Built   Built
	handle  *render.Handle
	summary Summary
}

// Handle returns the render handle controlling the diagram
func (d *Diagram) Handle() *render.Handle {
	return d.handle
}

// Summary returns the structure of the diagram with its current state
func (d *Diagram) Summary() Summary {
	s := d.summary
	s.State = string(d.handle.State())
	return s
}

// Page owns the scheduler, publisher and diagrams. Diagrams share nothing
// but the scheduler; one failing to build never affects the others.
type Page struct {
	mu       sync.RWMutex
	sched    scheduler.Scheduler
	pub      Publisher
	src      sampler.Source
	seed     uint64
	diagrams map[string]*Diagram
	order    []string
	failed   map[string]error
}

// NewPage creates an empty page. src is used for scattered diagrams and
// seed for the layout jiggle.
func NewPage(sched scheduler.Scheduler, pub Publisher, src sampler.Source, seed uint64) *Page {
	return &Page{
		sched:    sched,
		pub:      pub,
		src:      src,
		seed:     seed,
		diagrams: make(map[string]*Diagram),
		failed:   make(map[string]error),
	}
}

// Load replaces every diagram. Existing handles are stopped first. Diagrams
// that fail to build are left out and their errors joined in the result.
func (p *Page) Load(cfgs []config.DiagramConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()

	var errs []error
	for i, cfg := range cfgs {
		cfg = cfg.Normalize()
		d, err := p.build(cfg, p.seed+uint64(i))
		if err != nil {
			log.Warn("diagram failed to build", "id", cfg.ID, "error", err)
			p.failed[cfg.ID] = err
			errs = append(errs, err)
			continue
		}
		p.diagrams[cfg.ID] = d
		p.order = append(p.order, cfg.ID)
		log.Debug("diagram loaded", "id", cfg.ID, "nodes", len(d.Built.Nodes), "links", len(d.Built.Links))
	}

	log.Info("page loaded", "diagrams", len(p.order), "failed", len(p.failed))
	return errors.Join(errs...)
}

func (p *Page) build(cfg config.DiagramConfig, seed uint64) (*Diagram, error) {
	if _, exists := p.diagrams[cfg.ID]; exists {
		return nil, fmt.Errorf("duplicate diagram id %q", cfg.ID)
	}

	built, err := Build(cfg, p.src)
	if err != nil {
		return nil, err
	}

	engine, err := layout.ByName(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("diagram %s: %w", cfg.ID, err)
	}

	topic := pubsub.DiagramTopic(cfg.ID)
	p.pub.ConfigureTopic(topic, pubsub.TopicConfig{BufferSize: 1, Coalesce: true})

	surface := &topicSurface{pub: p.pub, topic: topic, width: cfg.Width, height: cfg.Height}
	handle, err := render.Render(surface, built.Nodes, built.Links, render.Options{
		LinkDistance: cfg.LinkDistance,
		Charge:       cfg.Charge,
		Gravity:      cfg.Gravity,
		Draggable:    cfg.Draggable,
		Seeds:        built.Seeds,
		RandSeed:     seed,
		Engine:       engine,
		Scheduler:    p.sched,
	})
	if err != nil {
		p.pub.ForgetTopic(topic)
		return nil, fmt.Errorf("diagram %s: %w", cfg.ID, err)
	}

	d := &Diagram{Config: cfg, Built: built, handle: handle}
	if d.summary, err = summarize(d); err != nil {
		handle.Stop()
		p.pub.ForgetTopic(topic)
		return nil, fmt.Errorf("diagram %s: %w", cfg.ID, err)
	}
	return d, nil
}

// Get returns a diagram by id
func (p *Page) Get(id string) (*Diagram, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.diagrams[id]
	return d, ok
}

// List returns the diagrams in configuration order
func (p *Page) List() []*Diagram {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Diagram, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.diagrams[id])
	}
	return out
}

// Failed returns the build errors of the last Load by diagram id
func (p *Page) Failed() map[string]error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]error, len(p.failed))
	for id, err := range p.failed {
		out[id] = err
	}
	return out
}

// PublishCurrent sends the last frame of a diagram to its topic, so a new
// subscriber sees a settled layout that no longer produces frames
func (p *Page) PublishCurrent(id string) error {
	d, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("unknown diagram %q", id)
	}
	return p.pub.Publish(pubsub.DiagramTopic(id), pubsub.EventFrame, frameData(d.handle.Frame()))
}

// PublishState announces a state change of a diagram
func (p *Page) PublishState(id string) error {
	d, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("unknown diagram %q", id)
	}
	return p.pub.Publish(pubsub.DiagramTopic(id), pubsub.EventState, pubsub.StateData{
		ID:    id,
		State: string(d.handle.State()),
	})
}

// PublishReloaded tells page subscribers the diagram set changed
func (p *Page) PublishReloaded() error {
	p.mu.RLock()
	data := pubsub.PageData{Diagrams: append([]string(nil), p.order...)}
	if len(p.failed) > 0 {
		data.Failed = make(map[string]string, len(p.failed))
		for id, err := range p.failed {
			data.Failed[id] = err.Error()
		}
	}
	p.mu.RUnlock()

	return p.pub.Publish(pubsub.PageTopic, pubsub.EventReloaded, data)
}

// Close stops every diagram
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Page) closeLocked() {
	for id, d := range p.diagrams {
		d.handle.Stop()
		p.pub.ForgetTopic(pubsub.DiagramTopic(id))
	}
	p.diagrams = make(map[string]*Diagram)
	p.order = nil
	p.failed = make(map[string]error)
}

// topicSurface publishes frames as SVG to a diagram topic, but only while
// someone is listening
type topicSurface struct {
	pub    Publisher
	topic  string
	width  float64
	height float64
}

func (s *topicSurface) Size() (float64, float64) {
	return s.width, s.height
}

func (s *topicSurface) Draw(f render.Frame) {
	if !s.pub.HasSubscribers(s.topic) {
		return
	}
	if err := s.pub.Publish(s.topic, pubsub.EventFrame, frameData(f)); err != nil {
		log.Debug("frame not published", "topic", s.topic, "error", err)
	}
}

func frameData(f render.Frame) pubsub.FrameData {
	return pubsub.FrameData{
		Seq:   f.Seq,
		Tick:  f.Tick,
		Alpha: f.Alpha,
		SVG:   render.SVGString(f),
	}
}
