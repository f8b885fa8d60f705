package button

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
)

// Sink receives translated button presses. It is called from the watcher
// goroutine; event.Loop.PostKey is the usual sink.
type Sink func(event.KeyEvent) bool

type binding struct {
	pin  int
	key  event.Key
	last time.Time
}

// Watcher polls GPIO edge detection and turns presses into key events.
type Watcher struct {
	gpio     gpio.Driver
	clock    clockwork.Clock
	poll     time.Duration
	debounce time.Duration
	sink     Sink
	bindings []*binding
}

// NewWatcher creates a watcher polling every poll. Presses of the same pin
// closer than debounce are dropped.
func NewWatcher(g gpio.Driver, clock clockwork.Clock, poll, debounce time.Duration, sink Sink) *Watcher {
	return &Watcher{
		gpio:     g,
		clock:    clock,
		poll:     poll,
		debounce: debounce,
		sink:     sink,
	}
}

// Bind maps presses on pin to key. Must be called before Run.
func (w *Watcher) Bind(pin int, key event.Key) {
	w.bindings = append(w.bindings, &binding{pin: pin, key: key})
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.Check()
		case <-ctx.Done():
			debug.Verbose("Button watcher stopped")
			return
		}
	}
}

// Check reads every bound pin once and emits the debounced presses.
func (w *Watcher) Check() {
	for _, b := range w.bindings {
		edge, err := w.gpio.EdgeDetected(b.pin)
		if err != nil {
			debug.Error(err)
			continue
		}
		if !edge {
			continue
		}
		now := w.clock.Now()
		if !b.last.IsZero() && now.Sub(b.last) < w.debounce {
			debug.Trace("Button on pin %d bounced (%v since last press)", b.pin, now.Sub(b.last))
			continue
		}
		b.last = now
		debug.GPIO("press", b.pin, b.key.String())
		w.sink(event.KeyEvent{Key: b.key, Source: event.SourceButton})
	}
}
