package layout

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
)

// MockEngine is a deterministic Engine for testing tick-driven code.
// Nothing moves unless Emit is called.
type MockEngine struct {
	mu        sync.Mutex
	running   bool
	listeners []TickFunc
	snapshot  Snapshot

	Starts int
	Stops  int
	Params map[Parameter]float64
	Pins   map[int]r2.Vec
	Calls  []string

	// ParamError, if set, is returned by SetParameter
	ParamError error
}

// NewMockEngine creates a mock whose initial snapshot holds the given positions
func NewMockEngine(positions map[int]r2.Vec) *MockEngine {
	return &MockEngine{
		snapshot: Snapshot{Positions: copyPositions(positions)},
		Params:   make(map[Parameter]float64),
		Pins:     make(map[int]r2.Vec),
	}
}

func (m *MockEngine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.Starts++
	m.Calls = append(m.Calls, "start")
}

func (m *MockEngine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.Stops++
	m.Calls = append(m.Calls, "stop")
}

func (m *MockEngine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *MockEngine) OnTick(fn TickFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *MockEngine) SetParameter(p Parameter, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf("set %s=%v", p, value))
	if m.ParamError != nil {
		return m.ParamError
	}
	m.Params[p] = value
	return nil
}

func (m *MockEngine) Pin(id int, pos r2.Vec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshot.Positions[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	m.Pins[id] = pos
	m.snapshot.Positions[id] = pos
	m.Calls = append(m.Calls, fmt.Sprintf("pin %d", id))
	return nil
}

func (m *MockEngine) Unpin(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Pins[id]; !ok {
		return fmt.Errorf("%w: %d is not pinned", ErrUnknownNode, id)
	}
	delete(m.Pins, id)
	m.Calls = append(m.Calls, fmt.Sprintf("unpin %d", id))
	return nil
}

func (m *MockEngine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snapshot
	s.Positions = copyPositions(m.snapshot.Positions)
	return s
}

// Emit delivers a snapshot to the listeners synchronously, as a real engine
// would on a frame. It does nothing while stopped and reports whether it fired.
func (m *MockEngine) Emit(s Snapshot) bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	m.snapshot = Snapshot{Tick: s.Tick, Alpha: s.Alpha, Positions: copyPositions(s.Positions)}
	listeners := append([]TickFunc(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
	return true
}
