//go:build linux

package webcam

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/blackjack/webcam"

	"github.com/cjeanneret/photobooth/internal/debug"
)

const frameTimeoutSec = 2

// V4L2 reads frames from a video4linux device.
type V4L2 struct {
	mu     sync.Mutex
	cam    *webcam.Webcam
	format PixelFormat
	width  int
	height int
}

// OpenV4L2 opens device, negotiates the best supported format at the frame
// size closest to width x height and starts streaming.
func OpenV4L2(device string, width, height int) (*V4L2, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	formats := cam.GetSupportedFormats()
	var format webcam.PixelFormat
	for _, f := range preferredFormats {
		if _, ok := formats[webcam.PixelFormat(f)]; ok {
			format = webcam.PixelFormat(f)
			break
		}
	}
	if format == 0 {
		cam.Close()
		return nil, fmt.Errorf("%s: no supported pixel format in %v", device, formats)
	}

	w, h := closestSize(cam.GetSupportedFrameSizes(format), uint32(width), uint32(height))
	f, gotW, gotH, err := cam.SetImageFormat(format, w, h)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%s: set format %s %dx%d: %w", device, formats[format], w, h, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%s: start streaming: %w", device, err)
	}
	debug.Info("Webcam %s streaming %s %dx%d", device, formats[f], gotW, gotH)

	return &V4L2{
		cam:    cam,
		format: PixelFormat(f),
		width:  int(gotW),
		height: int(gotH),
	}, nil
}

func closestSize(sizes []webcam.FrameSize, width, height uint32) (uint32, uint32) {
	if len(sizes) == 0 {
		return width, height
	}
	bestW, bestH := width, height
	var bestDist int64 = -1
	for _, s := range sizes {
		w := clamp(width, s.MinWidth, s.MaxWidth)
		h := clamp(height, s.MinHeight, s.MaxHeight)
		dist := abs(int64(w)*int64(h) - int64(width)*int64(height))
		if bestDist < 0 || dist < bestDist {
			bestW, bestH, bestDist = w, h, dist
		}
	}
	return bestW, bestH
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Read waits for the next frame and decodes it.
func (v *V4L2) Read() (image.Image, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cam == nil {
		return nil, ErrClosed
	}

	if err := v.cam.WaitForFrame(frameTimeoutSec); err != nil {
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			return nil, fmt.Errorf("no frame within %ds: %w", frameTimeoutSec, err)
		}
		return nil, fmt.Errorf("wait for frame: %w", err)
	}
	frame, err := v.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return Decode(v.format, v.width, v.height, frame)
}

// Close stops streaming and releases the device.
func (v *V4L2) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cam == nil {
		return nil
	}
	err := v.cam.Close()
	v.cam = nil
	return err
}
