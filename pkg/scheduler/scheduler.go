package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs registered callbacks once per frame until they are cancelled
type Scheduler interface {
	// Every registers fn to run on each frame. The returned cancel func is idempotent.
	Every(fn func()) (cancel func())
}

// registry holds callbacks in registration order
type registry struct {
	mu        sync.Mutex
	nextID    int
	callbacks map[int]func()
	order     []int
}

func newRegistry() *registry {
	return &registry{callbacks: make(map[int]func())}
}

func (r *registry) add(fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.callbacks[id] = fn
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.callbacks, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// snapshot copies the current callbacks so they run without the lock held
func (r *registry) snapshot() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	fns := make([]func(), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.callbacks[id])
	}
	return fns
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Loop is the host frame loop: one goroutine drives every registered callback
// sequentially on each tick of a time.Ticker.
type Loop struct {
	interval time.Duration
	reg      *registry
}

// NewLoop creates a frame loop ticking at fps frames per second
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 30
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		reg:      newRegistry(),
	}
}

// Every registers a callback
func (l *Loop) Every(fn func()) func() {
	return l.reg.add(fn)
}

// Interval returns the time between frames
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run drives the loop until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, fn := range l.reg.snapshot() {
				fn()
			}
		}
	}
}

// Manual runs callbacks only when Advance is called. Useful for tests and
// headless rendering where frames should not depend on wall-clock time.
type Manual struct {
	reg    *registry
	frames int
}

// NewManual creates a manual scheduler
func NewManual() *Manual {
	return &Manual{reg: newRegistry()}
}

// Every registers a callback
func (m *Manual) Every(fn func()) func() {
	return m.reg.add(fn)
}

// Advance runs n frames synchronously
func (m *Manual) Advance(n int) {
	for i := 0; i < n; i++ {
		m.frames++
		for _, fn := range m.reg.snapshot() {
			fn()
		}
	}
}

// Frames returns how many frames have been run
func (m *Manual) Frames() int {
	return m.frames
}

// Registered returns the number of active callbacks
func (m *Manual) Registered() int {
	return m.reg.len()
}
