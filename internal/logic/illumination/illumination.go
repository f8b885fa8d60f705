// Package illumination drives LED patterns on the illuminated buttons.
package illumination

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
)

// Indicator is a single button light.
type Indicator interface {
	SetLed(on bool) error
}

// Timers is the part of the event context a pattern needs.
type Timers interface {
	StartPeriodicTimer(key event.TimerKey, period time.Duration, h event.TimerHandler)
	StopTimer(key event.TimerKey)
}

// Controller is a running LED pattern.
type Controller interface {
	// Start arms the pattern timer, leaving the lights as set at construction.
	Start()
	// Stop cancels the timer and switches every controlled light off.
	// Calling it more than once is harmless.
	Stop() error
}

type pattern struct {
	timers  Timers
	key     event.TimerKey
	period  time.Duration
	buttons []Indicator
}

func (p *pattern) start(tick event.TimerHandler) {
	p.timers.StartPeriodicTimer(p.key, p.period, tick)
}

// Stop tries every button even when one fails.
func (p *pattern) Stop() error {
	p.timers.StopTimer(p.key)
	var errs []error
	for i, b := range p.buttons {
		if err := b.SetLed(false); err != nil {
			errs = append(errs, fmt.Errorf("switch off button %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Alternating lights one of two buttons at a time and swaps them every period.
type Alternating struct {
	pattern
	firstLit bool
}

// NewAlternating lights first and switches second off.
func NewAlternating(timers Timers, key event.TimerKey, period time.Duration, first, second Indicator) (*Alternating, error) {
	a := &Alternating{
		pattern: pattern{timers: timers, key: key, period: period, buttons: []Indicator{first, second}},
	}
	if err := a.apply(true); err != nil {
		return nil, err
	}
	debug.Verbose("Lights: alternating every %v", period)
	return a, nil
}

func (a *Alternating) apply(firstLit bool) error {
	if err := a.buttons[0].SetLed(firstLit); err != nil {
		return err
	}
	if err := a.buttons[1].SetLed(!firstLit); err != nil {
		return err
	}
	a.firstLit = firstLit
	return nil
}

func (a *Alternating) Start() {
	a.start(a.tick)
}

func (a *Alternating) tick() error {
	return a.apply(!a.firstLit)
}

// Flashing switches all its buttons on and off together every period.
type Flashing struct {
	pattern
	on bool
}

// NewFlashing switches every button on.
func NewFlashing(timers Timers, key event.TimerKey, period time.Duration, buttons ...Indicator) (*Flashing, error) {
	if len(buttons) == 0 {
		return nil, fmt.Errorf("flashing pattern needs at least one button")
	}
	f := &Flashing{
		pattern: pattern{timers: timers, key: key, period: period, buttons: buttons},
	}
	if err := f.apply(true); err != nil {
		return nil, err
	}
	debug.Verbose("Lights: flashing %d button(s) every %v", len(buttons), period)
	return f, nil
}

func (f *Flashing) apply(on bool) error {
	for _, b := range f.buttons {
		if err := b.SetLed(on); err != nil {
			return err
		}
	}
	f.on = on
	return nil
}

func (f *Flashing) Start() {
	f.start(f.tick)
}

func (f *Flashing) tick() error {
	return f.apply(!f.on)
}
