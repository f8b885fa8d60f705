// Package eventtest provides a synchronous event.Context for tests: timers
// only fire when the test says so.
package eventtest

import (
	"fmt"
	"time"

	"github.com/cjeanneret/photobooth/internal/event"
)

// TimerStart records one StartPeriodicTimer call.
type TimerStart struct {
	Key    event.TimerKey
	Period time.Duration
}

type timer struct {
	period  time.Duration
	handler event.TimerHandler
}

// Context implements event.Context without goroutines.
type Context struct {
	keyHandlers []event.KeyHandler
	timers      map[event.TimerKey]timer
	starts      []TimerStart
	Repaints    int
}

// New creates an empty context.
func New() *Context {
	return &Context{timers: make(map[event.TimerKey]timer)}
}

func (c *Context) BindKeyEvent(h event.KeyHandler) {
	c.keyHandlers = append(c.keyHandlers, h)
}

func (c *Context) StartPeriodicTimer(key event.TimerKey, period time.Duration, h event.TimerHandler) {
	c.timers[key] = timer{period: period, handler: h}
	c.starts = append(c.starts, TimerStart{Key: key, Period: period})
}

func (c *Context) StopTimer(key event.TimerKey) {
	delete(c.timers, key)
}

func (c *Context) RequestRepaint() {
	c.Repaints++
}

// Key dispatches ev to the bound handlers.
func (c *Context) Key(ev event.KeyEvent) error {
	for _, h := range c.keyHandlers {
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}

// Fire runs the handler of a live timer once.
func (c *Context) Fire(key event.TimerKey) error {
	t, ok := c.timers[key]
	if !ok {
		return fmt.Errorf("timer %q is not running", key)
	}
	return t.handler()
}

// Active reports whether key is live.
func (c *Context) Active(key event.TimerKey) bool {
	_, ok := c.timers[key]
	return ok
}

// Period returns the period of a live timer, zero when not live.
func (c *Context) Period(key event.TimerKey) time.Duration {
	return c.timers[key].period
}

// Starts returns every StartPeriodicTimer call for key, oldest first.
func (c *Context) Starts(key event.TimerKey) []time.Duration {
	var out []time.Duration
	for _, s := range c.starts {
		if s.Key == key {
			out = append(out, s.Period)
		}
	}
	return out
}

var _ event.Context = (*Context)(nil)
