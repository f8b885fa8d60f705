//go:build !linux

package webcam

import (
	"fmt"
	"image"
	"runtime"
)

// V4L2 is only available on Linux.
type V4L2 struct{}

// OpenV4L2 always fails outside Linux; use the mock webcam instead.
func OpenV4L2(device string, width, height int) (*V4L2, error) {
	return nil, fmt.Errorf("v4l2 webcam %s is not supported on %s", device, runtime.GOOS)
}

func (v *V4L2) Read() (image.Image, error) { return nil, ErrClosed }

func (v *V4L2) Close() error { return nil }
