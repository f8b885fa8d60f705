package booth

import (
	"fmt"
	"image"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/logic/illumination"
	"github.com/cjeanneret/photobooth/internal/view"
)

// --- Transition actions ---

func (s *Session) decrementCountdown(_ input) error {
	s.countdown--
	debug.Live("Countdown %d", s.countdown)
	return nil
}

func (s *Session) takePhoto(_ input) error {
	if err := s.deps.Camera.TakePhoto(); err != nil {
		return fmt.Errorf("take photo: %w", err)
	}
	s.deps.Metrics.PhotoTaken()
	return nil
}

// showCountdown redraws the countdown after a non-final tick and speeds up
// the button flashing.
func (s *Session) showCountdown(_ input) error {
	if err := s.deps.Renderer.Show(s.countdownScreen()); err != nil {
		return err
	}
	return s.flashCountdown()
}

func (s *Session) createPrint(_ input) error {
	photos := s.deps.Photos.Photos()
	images := make([]image.Image, len(photos))
	for i, p := range photos {
		images[i] = p.Image
	}
	sheet, err := s.deps.Composer.Compose(images)
	if err != nil {
		return fmt.Errorf("create print: %w", err)
	}
	s.finalPrint = sheet
	debug.Verbose("Print sheet assembled from %d photos", len(images))
	return nil
}

func (s *Session) deleteLastPhoto(_ input) error {
	if err := s.deps.Photos.DeleteLast(); err != nil {
		return fmt.Errorf("delete last photo: %w", err)
	}
	return nil
}

func (s *Session) submitPrint(_ input) error {
	debug.Info("Starting photo print with %d copies", s.printCount)
	job, err := s.deps.Printer.PrintImage(s.finalPrint, s.printCount)
	if err != nil {
		return fmt.Errorf("submit print: %w", err)
	}
	s.job = job
	s.printDone = false
	s.deps.Metrics.PrintSubmitted(s.printCount)
	return nil
}

func (s *Session) incrementPrintCount(_ input) error {
	s.printCount = s.printCount%s.settings.MaxPrintCount + 1
	debug.Live("Print count %d", s.printCount)
	return nil
}

func (s *Session) markPrintDone(_ input) error {
	s.printDone = true
	debug.Info("Print job %s finished", s.job)
	return s.deps.Renderer.Show(view.Screen{Kind: view.KindSentToPrint, PrintDone: true})
}

// --- Start ---

func (s *Session) clearPhotos(_ input) error {
	s.deps.Photos.Clear()
	return nil
}

func (s *Session) resetPrintVariables(_ input) error {
	s.printCount = 1
	s.finalPrint = nil
	s.job = ""
	s.printDone = false
	return nil
}

func (s *Session) renderStart(_ input) error {
	if err := s.deps.Renderer.Show(view.Screen{Kind: view.KindStart}); err != nil {
		return err
	}
	return s.alternateLights()
}

// --- Countdown ---

func (s *Session) countdownScreen() view.Screen {
	return view.Screen{Kind: view.KindCountdown, Count: s.countdown}
}

func (s *Session) renderCountdown(_ input) error {
	s.countdown = s.settings.CountdownStart
	if err := s.deps.Renderer.Show(s.countdownScreen()); err != nil {
		return err
	}
	return s.flashCountdown()
}

// flashRate picks the flash period for the current count: the last rate at
// zero, the one before at one, and so on, clamped to the first rate.
func (s *Session) flashRate() time.Duration {
	rates := s.settings.CountdownRates
	i := len(rates) - 1 - s.countdown
	if i < 0 {
		i = 0
	}
	if i > len(rates)-1 {
		i = len(rates) - 1
	}
	return rates[i]
}

func (s *Session) flashCountdown() error {
	if err := s.stopLights(); err != nil {
		return err
	}
	f, err := illumination.NewFlashing(s.deps.Context, TimerLights, s.flashRate(), s.deps.Left, s.deps.Right)
	if err != nil {
		return fmt.Errorf("countdown lights: %w", err)
	}
	s.startLights(f)
	return nil
}

func (s *Session) startCountdownTimer(_ input) error {
	s.deps.Context.StartPeriodicTimer(TimerCountdown, s.settings.CountdownTick, s.onCountdownTick)
	return nil
}

func (s *Session) stopCountdownTimer(_ input) error {
	s.deps.Context.StopTimer(TimerCountdown)
	return nil
}

func (s *Session) onCountdownTick() error {
	return s.fire(input{trigger: TriggerCountdownTick})
}

// --- ReviewPhoto / PrintPhoto ---

func (s *Session) renderReviewPhoto(_ input) error {
	last, err := s.deps.Photos.Last()
	if err != nil {
		return fmt.Errorf("review photo: %w", err)
	}
	if err := s.deps.Renderer.Show(view.Screen{Kind: view.KindReviewPhoto, Photo: last.Image}); err != nil {
		return err
	}
	return s.alternateLights()
}

func (s *Session) renderPrintPhoto(_ input) error {
	screen := view.Screen{
		Kind:          view.KindPrintPhoto,
		Photo:         s.finalPrint,
		PrintCount:    s.printCount,
		MaxPrintCount: s.settings.MaxPrintCount,
	}
	if err := s.deps.Renderer.Show(screen); err != nil {
		return err
	}
	return s.alternateLights()
}

// --- SentToPrint ---

func (s *Session) renderSentToPrint(_ input) error {
	if err := s.deps.Renderer.Show(view.Screen{Kind: view.KindSentToPrint}); err != nil {
		return err
	}
	f, err := illumination.NewFlashing(s.deps.Context, TimerLights, s.settings.LightsPeriod, s.deps.Right)
	if err != nil {
		return fmt.Errorf("print lights: %w", err)
	}
	s.startLights(f)
	return nil
}

func (s *Session) startPrintNotifyTimer(_ input) error {
	s.deps.Context.StartPeriodicTimer(TimerPrintNotify, s.settings.PrintNotify, s.onPrintNotifyExpired)
	return nil
}

func (s *Session) stopPrintNotifyTimer(_ input) error {
	s.deps.Context.StopTimer(TimerPrintNotify)
	return nil
}

func (s *Session) onPrintNotifyExpired() error {
	return s.fire(input{trigger: TriggerPrintNotifyExpired})
}

func (s *Session) startPrintPollTimer(_ input) error {
	s.deps.Context.StartPeriodicTimer(TimerPrintPoll, s.settings.PrintPoll, s.onPrintPoll)
	return nil
}

func (s *Session) stopPrintPollTimer(_ input) error {
	s.deps.Context.StopTimer(TimerPrintPoll)
	return nil
}

// onPrintPoll asks the printer about the current job. A failing query is
// logged and retried on the next tick; the notify timer still returns the
// booth to Start.
func (s *Session) onPrintPoll() error {
	done, err := s.deps.Printer.HasFinished(s.job)
	if err != nil {
		debug.Warn("Print job %s status unknown: %v", s.job, err)
		return nil
	}
	if !done {
		return nil
	}
	s.deps.Context.StopTimer(TimerPrintPoll)
	return s.fire(input{trigger: TriggerPrintFinished})
}

// --- Exit ---

func (s *Session) exitApp(_ input) error {
	debug.Info("Exit requested")
	s.deps.Exit()
	return nil
}

// --- Shared ---

// clearScreen runs on every state exit: blank the screen, switch the
// buttons off and re-arm the button lockout.
func (s *Session) clearScreen(_ input) error {
	if err := s.deps.Renderer.Clear(); err != nil {
		return err
	}
	if err := s.stopLights(); err != nil {
		return err
	}
	s.lockoutUntil = s.deps.Clock.Now().Add(s.settings.InputLockout)
	return nil
}

func (s *Session) alternateLights() error {
	a, err := illumination.NewAlternating(s.deps.Context, TimerLights, s.settings.LightsPeriod, s.deps.Left, s.deps.Right)
	if err != nil {
		return fmt.Errorf("button lights: %w", err)
	}
	s.startLights(a)
	return nil
}

func (s *Session) startLights(c illumination.Controller) {
	s.lights = c
	c.Start()
}

func (s *Session) stopLights() error {
	if s.lights == nil {
		return nil
	}
	err := s.lights.Stop()
	s.lights = nil
	if err != nil {
		return fmt.Errorf("button lights: %w", err)
	}
	return nil
}
