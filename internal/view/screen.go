// Package view renders the booth screens to one or more sinks (terminal,
// web panel) and feeds them the live webcam preview.
package view

import (
	"fmt"
	"image"
)

// Kind is which booth screen is shown.
type Kind int

const (
	KindNone Kind = iota
	KindStart
	KindCountdown
	KindReviewPhoto
	KindPrintPhoto
	KindSentToPrint
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindCountdown:
		return "countdown"
	case KindReviewPhoto:
		return "review-photo"
	case KindPrintPhoto:
		return "print-photo"
	case KindSentToPrint:
		return "sent-to-print"
	default:
		return "none"
	}
}

// Screen is everything a sink needs to draw one booth screen.
type Screen struct {
	Kind          Kind
	Count         int // countdown value
	PrintCount    int // selected copies
	MaxPrintCount int
	Photo         image.Image // last photo or print preview
	PrintDone     bool
}

// Live reports whether the screen shows the webcam preview.
func (s Screen) Live() bool {
	return s.Kind == KindStart || s.Kind == KindCountdown
}

// Title is the headline of the screen.
func (s Screen) Title() string {
	switch s.Kind {
	case KindStart:
		return "Press a button to start!"
	case KindCountdown:
		if s.Count <= 0 {
			return "Smile!"
		}
		return fmt.Sprintf("%d", s.Count)
	case KindReviewPhoto:
		return "How does it look?"
	case KindPrintPhoto:
		return fmt.Sprintf("Print %d of %d copies?", s.PrintCount, s.MaxPrintCount)
	case KindSentToPrint:
		if s.PrintDone {
			return "Your print is ready!"
		}
		return "Printing..."
	default:
		return ""
	}
}

// Hints returns the labels of the left and right buttons; empty when the
// button does nothing on this screen.
func (s Screen) Hints() (left, right string) {
	switch s.Kind {
	case KindStart:
		return "Start", "Start"
	case KindReviewPhoto:
		return "Retake", "Keep"
	case KindPrintPhoto:
		return "More copies", "Print"
	case KindSentToPrint:
		return "", "Done"
	default:
		return "", ""
	}
}

// Renderer is what the session drives.
type Renderer interface {
	Show(s Screen) error
	Clear() error
}

// Frame is one paint: the screen plus the latest preview image, if any.
type Frame struct {
	Screen  Screen
	Visible bool
	Preview image.Image
}

// Sink draws frames.
type Sink interface {
	Paint(f Frame) error
}
