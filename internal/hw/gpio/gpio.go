package gpio

import (
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
//
// Implementations must be safe for concurrent use: LEDs are written from the
// event loop while buttons are polled from the watcher goroutine.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	// SetupButton configures pin as an input with pull-up and arms
	// falling-edge detection (button wired to ground).
	SetupButton(pin int) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	// EdgeDetected reports whether an armed edge occurred since the last call.
	EdgeDetected(pin int) (bool, error)
	Close() error
}

// MockDriver is a test implementation that logs actions and keeps pin state
// in memory. Used for development on PC or testing. The zero value is ready
// to use.
type MockDriver struct {
	mu     sync.Mutex
	modes  map[int]PinMode
	levels map[int]Level
	edges  map[int]bool
	writes map[int][]Level
	closed bool
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) init() {
	if m.modes == nil {
		m.modes = make(map[int]PinMode)
		m.levels = make(map[int]Level)
		m.edges = make(map[int]bool)
		m.writes = make(map[int][]Level)
	}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.modes[pin] = mode
	return nil
}

func (m *MockDriver) SetupButton(pin int) error {
	debug.GPIO("SetupButton", pin, "pull-up, falling edge")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.modes[pin] = Input
	m.levels[pin] = High
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.levels[pin] = level
	m.writes[pin] = append(m.writes[pin], level)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return m.levels[pin], nil
}

func (m *MockDriver) EdgeDetected(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	edge := m.edges[pin]
	m.edges[pin] = false
	return edge, nil
}

// TriggerEdge simulates a button press on pin.
func (m *MockDriver) TriggerEdge(pin int) {
	debug.GPIO("TriggerEdge", pin, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.edges[pin] = true
}

// Writes returns the levels written to pin, oldest first.
func (m *MockDriver) Writes(pin int) []Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Level(nil), m.writes[pin]...)
}

// Mode returns the configured mode of pin and whether it was set up.
func (m *MockDriver) Mode(pin int) (PinMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode, ok := m.modes[pin]
	return mode, ok
}

// Closed reports whether Close was called.
func (m *MockDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
