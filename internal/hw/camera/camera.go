package camera

import (
	"errors"
	"fmt"
	"image"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/webcam"
	"github.com/cjeanneret/photobooth/internal/storage"
)

// ErrCapture wraps every failure to obtain a picture from the device.
var ErrCapture = errors.New("capture failed")

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract "camera", regardless of how it's controlled
// (V4L2, USB tethering, GPIO trigger, etc.).
type Camera interface {
	// TakePhoto captures one picture and adds it to the photo storage.
	TakePhoto() error
}

// PhotoSink stores captured pictures.
type PhotoSink interface {
	AddPhoto(img image.Image) (storage.Photo, error)
}

// WebcamCamera takes photos by grabbing the current webcam frame.
type WebcamCamera struct {
	webcam webcam.Webcam
	photos PhotoSink
}

// NewWebcamCamera creates a camera storing frames of w into photos.
func NewWebcamCamera(w webcam.Webcam, photos PhotoSink) *WebcamCamera {
	return &WebcamCamera{webcam: w, photos: photos}
}

// TakePhoto grabs one frame. A device failure is reported as ErrCapture.
func (c *WebcamCamera) TakePhoto() error {
	debug.Verbose("Camera: grabbing frame")

	img, err := c.webcam.Read()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if _, err := c.photos.AddPhoto(img); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	return nil
}
