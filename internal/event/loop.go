package event

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cjeanneret/photobooth/internal/debug"
)

const queueSize = 64

type timer struct {
	gen     uint64
	handler TimerHandler
	ticker  clockwork.Ticker
	done    chan struct{}
}

// Loop is the Context implementation. All handlers run on the goroutine that
// calls Run; other goroutines talk to it through Post and PostKey.
type Loop struct {
	clock  clockwork.Clock
	events chan func() error
	stop   chan struct{}
	once   sync.Once

	// owned by the loop goroutine
	keyHandlers    []KeyHandler
	paint          PaintHandler
	timers         map[TimerKey]*timer
	gen            uint64
	repaintPending bool
}

// NewLoop creates a loop whose timers run on clock.
func NewLoop(clock clockwork.Clock) *Loop {
	return &Loop{
		clock:  clock,
		events: make(chan func() error, queueSize),
		stop:   make(chan struct{}),
		timers: make(map[TimerKey]*timer),
	}
}

// Clock returns the clock driving the timers.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// BindKeyEvent registers h; handlers are called in registration order.
func (l *Loop) BindKeyEvent(h KeyHandler) {
	l.keyHandlers = append(l.keyHandlers, h)
}

// BindRepaint sets the callback invoked once per dispatch cycle after a
// RequestRepaint.
func (l *Loop) BindRepaint(h PaintHandler) {
	l.paint = h
}

// StartPeriodicTimer calls h every period until StopTimer(key). A live timer
// with the same key is stopped first.
func (l *Loop) StartPeriodicTimer(key TimerKey, period time.Duration, h TimerHandler) {
	l.StopTimer(key)
	l.gen++
	t := &timer{
		gen:     l.gen,
		handler: h,
		ticker:  l.clock.NewTicker(period),
		done:    make(chan struct{}),
	}
	l.timers[key] = t
	debug.Timer("start", string(key), period)

	go l.forward(key, t)
}

func (l *Loop) forward(key TimerKey, t *timer) {
	for {
		select {
		case <-t.ticker.Chan():
			gen := t.gen
			l.Post(func() error { return l.fire(key, gen) })
		case <-t.done:
			return
		case <-l.stop:
			return
		}
	}
}

// fire runs the handler unless the timer was stopped or restarted after
// the tick was queued.
func (l *Loop) fire(key TimerKey, gen uint64) error {
	t, ok := l.timers[key]
	if !ok || t.gen != gen {
		debug.Trace("stale tick dropped: %s", key)
		return nil
	}
	return t.handler()
}

// StopTimer cancels the timer; it is a no-op when key is not live.
func (l *Loop) StopTimer(key TimerKey) {
	t, ok := l.timers[key]
	if !ok {
		return
	}
	delete(l.timers, key)
	t.ticker.Stop()
	close(t.done)
	debug.Timer("stop", string(key), 0)
}

// Active reports whether a timer is live for key.
func (l *Loop) Active(key TimerKey) bool {
	_, ok := l.timers[key]
	return ok
}

// RequestRepaint marks the display dirty; the paint callback runs once at the
// end of the current dispatch cycle.
func (l *Loop) RequestRepaint() {
	l.repaintPending = true
}

// Post queues fn to run on the loop goroutine. It is safe to call from any
// goroutine and returns false once the loop has stopped.
func (l *Loop) Post(fn func() error) bool {
	select {
	case <-l.stop:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.stop:
		return false
	}
}

// PostKey queues a key event for dispatch.
func (l *Loop) PostKey(ev KeyEvent) bool {
	return l.Post(func() error { return l.dispatchKey(ev) })
}

func (l *Loop) dispatchKey(ev KeyEvent) error {
	for _, h := range l.keyHandlers {
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}

// Run dispatches events until ctx is done or Stop is called, returning nil,
// or until a handler fails, returning its error.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.Stop()
		l.stopTimers()
	}()

	if err := l.flush(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stop:
			return nil
		case fn := <-l.events:
			if err := fn(); err != nil {
				return err
			}
			if err := l.flush(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) flush() error {
	if !l.repaintPending {
		return nil
	}
	l.repaintPending = false
	if l.paint == nil {
		return nil
	}
	return l.paint()
}

func (l *Loop) stopTimers() {
	for key := range l.timers {
		l.StopTimer(key)
	}
}

// Stop makes Run return. Safe to call more than once and from any goroutine.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.stop
}
