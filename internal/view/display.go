package view

import (
	"fmt"
	"image"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/hw/webcam"
)

// PreviewTimer is the timer refreshing the live preview.
const PreviewTimer event.TimerKey = "preview"

// Display is the Renderer used by the booth. Show and Clear only record the
// screen and request a repaint; Paint, bound to the loop's repaint
// callback, pushes the frame to every sink.
type Display struct {
	ctx      event.Context
	webcam   webcam.Webcam
	interval time.Duration
	sinks    []Sink

	screen        Screen
	visible       bool
	preview       image.Image
	previewFailed bool
}

// NewDisplay creates a display reading preview frames from w every interval.
func NewDisplay(ctx event.Context, w webcam.Webcam, interval time.Duration, sinks ...Sink) *Display {
	return &Display{
		ctx:      ctx,
		webcam:   w,
		interval: interval,
		sinks:    sinks,
	}
}

// AddSink registers another sink. Must be called before the loop runs.
func (d *Display) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Show replaces the current screen.
func (d *Display) Show(s Screen) error {
	debug.Verbose("Display: show %s", s.Kind)
	d.screen = s
	d.visible = true
	if s.Live() && d.webcam != nil {
		d.ctx.StartPeriodicTimer(PreviewTimer, d.interval, d.refreshPreview)
		if err := d.refreshPreview(); err != nil {
			return err
		}
	} else {
		d.ctx.StopTimer(PreviewTimer)
		d.preview = nil
	}
	d.ctx.RequestRepaint()
	return nil
}

// Clear blanks the display.
func (d *Display) Clear() error {
	debug.Verbose("Display: clear")
	d.ctx.StopTimer(PreviewTimer)
	d.screen = Screen{}
	d.visible = false
	d.preview = nil
	d.ctx.RequestRepaint()
	return nil
}

// refreshPreview grabs a webcam frame. A failing webcam only degrades the
// preview; it is logged once until it recovers.
func (d *Display) refreshPreview() error {
	img, err := d.webcam.Read()
	if err != nil {
		if !d.previewFailed {
			debug.Warn("Preview unavailable: %v", err)
		}
		d.previewFailed = true
		return nil
	}
	if d.previewFailed {
		debug.Info("Preview recovered")
	}
	d.previewFailed = false
	d.preview = img
	d.ctx.RequestRepaint()
	return nil
}

// Screen returns the current screen and whether it is visible.
func (d *Display) Screen() (Screen, bool) {
	return d.screen, d.visible
}

// Paint sends the current frame to every sink.
func (d *Display) Paint() error {
	f := Frame{Screen: d.screen, Visible: d.visible, Preview: d.preview}
	for _, s := range d.sinks {
		if err := s.Paint(f); err != nil {
			return fmt.Errorf("paint: %w", err)
		}
	}
	return nil
}
