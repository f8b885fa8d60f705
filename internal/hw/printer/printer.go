// Package printer submits the composed print to a printer and tracks the job.
package printer

import (
	"errors"
	"image"
)

// ErrPrinterNotFound is returned by Start when the configured printer does
// not exist.
var ErrPrinterNotFound = errors.New("printer not found")

// JobID identifies a submitted print job.
type JobID string

// Service is a print backend.
type Service interface {
	// Start checks the printer is available.
	Start() error
	// PrintImage submits img for the given number of copies.
	PrintImage(img image.Image, copies int) (JobID, error)
	// HasFinished reports whether the job left the printer queue.
	HasFinished(job JobID) (bool, error)
}
