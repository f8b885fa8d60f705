// Package booth implements the photobooth session: a table-driven state
// machine orchestrating the camera, the print flow, the button lights and
// the screens.
package booth

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/hw/printer"
	"github.com/cjeanneret/photobooth/internal/logic/illumination"
	"github.com/cjeanneret/photobooth/internal/storage"
	"github.com/cjeanneret/photobooth/internal/view"
)

// ErrInvalidSettings is wrapped by every settings or dependency validation
// failure reported by New.
var ErrInvalidSettings = errors.New("invalid session settings")

// Timer keys used by the session.
const (
	TimerCountdown   event.TimerKey = "countdown"
	TimerPrintNotify event.TimerKey = "print-notify"
	TimerPrintPoll   event.TimerKey = "print-poll"
	TimerLights      event.TimerKey = "button-lights"
)

// maxCountdownStart is the largest value the countdown screen can show.
const maxCountdownStart = 9

// Settings are the session timings and limits.
type Settings struct {
	CountdownStart int
	CountdownTick  time.Duration
	CountdownRates []time.Duration // flash periods; the last one is used at count 0
	InputLockout   time.Duration
	PrintNotify    time.Duration
	PrintPoll      time.Duration
	LightsPeriod   time.Duration
	MaxPrintCount  int
	MinPhotos      int
}

// DefaultSettings returns the settings of the reference booth.
func DefaultSettings() Settings {
	return Settings{
		CountdownStart: 3,
		CountdownTick:  1200 * time.Millisecond,
		CountdownRates: []time.Duration{600 * time.Millisecond, 200 * time.Millisecond, 100 * time.Millisecond, 50 * time.Millisecond},
		InputLockout:   1200 * time.Millisecond,
		PrintNotify:    8000 * time.Millisecond,
		PrintPoll:      1000 * time.Millisecond,
		LightsPeriod:   600 * time.Millisecond,
		MaxPrintCount:  3,
		MinPhotos:      3,
	}
}

// Validate checks every value is in range.
func (c Settings) Validate() error {
	if c.CountdownStart < 0 || c.CountdownStart > maxCountdownStart {
		return fmt.Errorf("%w: countdown start %d outside 0..%d", ErrInvalidSettings, c.CountdownStart, maxCountdownStart)
	}
	if c.MaxPrintCount < 1 {
		return fmt.Errorf("%w: max print count %d < 1", ErrInvalidSettings, c.MaxPrintCount)
	}
	if c.MinPhotos < 1 {
		return fmt.Errorf("%w: min photos %d < 1", ErrInvalidSettings, c.MinPhotos)
	}
	if len(c.CountdownRates) == 0 {
		return fmt.Errorf("%w: no countdown flash rates", ErrInvalidSettings)
	}
	for _, r := range c.CountdownRates {
		if r <= 0 {
			return fmt.Errorf("%w: countdown flash rate %v <= 0", ErrInvalidSettings, r)
		}
	}
	for name, d := range map[string]time.Duration{
		"countdown tick": c.CountdownTick,
		"print notify":   c.PrintNotify,
		"print poll":     c.PrintPoll,
		"lights period":  c.LightsPeriod,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s %v <= 0", ErrInvalidSettings, name, d)
		}
	}
	if c.InputLockout < 0 {
		return fmt.Errorf("%w: input lockout %v < 0", ErrInvalidSettings, c.InputLockout)
	}
	return nil
}

// PhotoStore is the session's view of the photo storage.
type PhotoStore interface {
	Photos() []storage.Photo
	Last() (storage.Photo, error)
	DeleteLast() error
	Clear()
}

// Composer builds the print sheet from the burst.
type Composer interface {
	Compose(photos []image.Image) (image.Image, error)
}

// Metrics receives session counters. Every method must be cheap.
type Metrics interface {
	Transition(from, to string)
	PhotoTaken()
	PrintSubmitted(copies int)
	InputDropped(source string)
}

type nopMetrics struct{}

func (nopMetrics) Transition(string, string) {}
func (nopMetrics) PhotoTaken()               {}
func (nopMetrics) PrintSubmitted(int)        {}
func (nopMetrics) InputDropped(string)       {}

// Deps are the collaborators of a session. Observer, Metrics and Clock are
// optional.
type Deps struct {
	Context  event.Context
	Clock    clockwork.Clock
	Camera   camera.Camera
	Photos   PhotoStore
	Composer Composer
	Printer  printer.Service
	Renderer view.Renderer
	Left     illumination.Indicator
	Right    illumination.Indicator
	Exit     func()
	Observer func(Status)
	Metrics  Metrics
}

func (d *Deps) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s is required", ErrInvalidSettings, name)
	}
	switch {
	case d.Context == nil:
		return missing("event context")
	case d.Camera == nil:
		return missing("camera")
	case d.Photos == nil:
		return missing("photo storage")
	case d.Composer == nil:
		return missing("composer")
	case d.Printer == nil:
		return missing("printer")
	case d.Renderer == nil:
		return missing("renderer")
	case d.Left == nil || d.Right == nil:
		return missing("left and right buttons")
	case d.Exit == nil:
		return missing("exit callback")
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	return nil
}

// Status is a snapshot of the session published after every transition.
type Status struct {
	State         string `json:"state"`
	Countdown     int    `json:"countdown"` // only set in Countdown
	PrintCount    int    `json:"print_count"`
	MaxPrintCount int    `json:"max_print_count"`
	Photos        int    `json:"photos"`
	PrintJob      string `json:"print_job,omitempty"`
	PrintDone     bool   `json:"print_done"`
}

// Session is the booth state machine. All methods must be called from the
// event loop goroutine.
type Session struct {
	deps     Deps
	settings Settings
	rules    []rule
	actions  map[State]stateActions

	state        State
	countdown    int
	printCount   int
	lockoutUntil time.Time
	lights       illumination.Controller
	finalPrint   image.Image
	job          printer.JobID
	printDone    bool
}

// New validates settings and collaborators, binds the key handler and arms
// the initial input lockout. The session stays in Init until Start.
func New(deps Deps, settings Settings) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		deps:       deps,
		settings:   settings,
		rules:      transitions(),
		actions:    states(),
		state:      StateInit,
		printCount: 1,
	}
	s.lockoutUntil = s.deps.Clock.Now().Add(settings.InputLockout)
	deps.Context.BindKeyEvent(s.onKey)
	return s, nil
}

// Start moves the session from Init to Start.
func (s *Session) Start() error {
	return s.fire(input{trigger: TriggerBegin})
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Countdown returns the current countdown value.
func (s *Session) Countdown() int {
	return s.countdown
}

// PrintCount returns the selected number of copies.
func (s *Session) PrintCount() int {
	return s.printCount
}

// FinalPrint returns the composed print sheet, nil before CreatePrint.
func (s *Session) FinalPrint() image.Image {
	return s.finalPrint
}

// LockoutUntil returns the end of the current button lockout window.
func (s *Session) LockoutUntil() time.Time {
	return s.lockoutUntil
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	st := Status{
		State:         s.state.String(),
		PrintCount:    s.printCount,
		MaxPrintCount: s.settings.MaxPrintCount,
		Photos:        len(s.deps.Photos.Photos()),
		PrintJob:      string(s.job),
		PrintDone:     s.printDone,
	}
	if s.state == StateCountdown {
		st.Countdown = s.countdown
	}
	return st
}

// onKey translates key events into KeyDown triggers. Button presses inside
// the lockout window are dropped here; keyboard and on-screen keys never are.
func (s *Session) onKey(ev event.KeyEvent) error {
	if ev.Source == event.SourceButton && !s.deps.Clock.Now().After(s.lockoutUntil) {
		debug.Trace("Button %s dropped (locked out until %s)", ev.Key, s.lockoutUntil.Format("15:04:05.000"))
		s.deps.Metrics.InputDropped(ev.Source.String())
		return nil
	}
	debug.Key(ev.Key.String(), ev.Source.String())
	return s.fire(input{trigger: TriggerKeyDown, key: ev.Key})
}

// fire runs the first matching rule. Errors from actions abort the
// transition and are returned as is.
func (s *Session) fire(in input) error {
	for _, r := range s.rules {
		if !r.matches(in, s.state) {
			continue
		}
		for _, prepare := range r.prepare {
			if err := prepare(s, in); err != nil {
				return err
			}
		}
		if !passes(s, r.guards, in) {
			continue
		}
		for _, before := range r.before {
			if err := before(s, in); err != nil {
				return err
			}
		}
		if r.internal {
			s.publish()
			return nil
		}
		return s.transition(r.dest, in)
	}
	debug.Trace("%s(%s) absorbed in %s", in.trigger, in.key, s.state)
	return nil
}

func passes(s *Session, guards []guard, in input) bool {
	for _, g := range guards {
		if !g(s, in) {
			return false
		}
	}
	return true
}

func (s *Session) transition(dest State, in input) error {
	src := s.state
	for _, exit := range s.actions[src].exit {
		if err := exit(s, in); err != nil {
			return fmt.Errorf("leave %s: %w", src, err)
		}
	}
	s.state = dest
	debug.Transition(src.String(), dest.String())
	s.deps.Metrics.Transition(src.String(), dest.String())
	for _, entry := range s.actions[dest].entry {
		if err := entry(s, in); err != nil {
			return fmt.Errorf("enter %s: %w", dest, err)
		}
	}
	s.publish()
	return nil
}

func (s *Session) publish() {
	if s.deps.Observer != nil {
		s.deps.Observer(s.Status())
	}
}
