// Package webcam provides the live preview source. Frames are also what the
// booth keeps as photos.
package webcam

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
)

// Webcam returns the current frame.
type Webcam interface {
	Read() (image.Image, error)
}

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("webcam closed")

// V4L2 fourcc codes the decoder understands.
const (
	FormatMJPEG PixelFormat = 0x47504A4D // MJPG
	FormatJPEG  PixelFormat = 0x4745504A // JPEG
	FormatPJPG  PixelFormat = 0x47504A50 // PJPG
	FormatYUYV  PixelFormat = 0x56595559 // YUYV
	FormatGREY  PixelFormat = 0x59455247 // GREY
)

// PixelFormat is a V4L2 fourcc.
type PixelFormat uint32

func (f PixelFormat) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	return string(b)
}

// preference order when the device offers several formats
var preferredFormats = []PixelFormat{FormatMJPEG, FormatJPEG, FormatPJPG, FormatYUYV, FormatGREY}

// Decode converts a raw frame to an image.
func Decode(format PixelFormat, width, height int, frame []byte) (image.Image, error) {
	switch format {
	case FormatMJPEG, FormatJPEG, FormatPJPG:
		img, err := jpeg.Decode(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("decode %s frame: %w", format, err)
		}
		return img, nil
	case FormatYUYV:
		if width%2 != 0 {
			return nil, fmt.Errorf("YUYV frame width %d is odd", width)
		}
		stride, err := rowStride(format, frame, width*2, height)
		if err != nil {
			return nil, err
		}
		yuyv := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
		for y := 0; y < height; y++ {
			row := frame[y*stride : y*stride+width*2]
			for x := 0; x < width/2; x++ {
				ii := x * 4
				yi := y*yuyv.YStride + x*2
				ci := y*yuyv.CStride + x
				yuyv.Y[yi] = row[ii]
				yuyv.Y[yi+1] = row[ii+2]
				yuyv.Cb[ci] = row[ii+1]
				yuyv.Cr[ci] = row[ii+3]
			}
		}
		return yuyv, nil
	case FormatGREY:
		stride, err := rowStride(format, frame, width, height)
		if err != nil {
			return nil, err
		}
		gry := image.NewGray(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			copy(gry.Pix[y*gry.Stride:], frame[y*stride:y*stride+width])
		}
		return gry, nil
	default:
		return nil, fmt.Errorf("unsupported pixel format %s", format)
	}
}

// rowStride returns the bytes per line of a packed frame. Drivers may pad
// each line, and for packed formats the frame holds exactly height lines.
func rowStride(format PixelFormat, frame []byte, rowBytes, height int) (int, error) {
	if rowBytes <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid %s frame size %d bytes x %d lines", format, rowBytes, height)
	}
	if len(frame) < rowBytes*height {
		return 0, fmt.Errorf("short %s frame: %d bytes for %d lines of %d", format, len(frame), height, rowBytes)
	}
	return len(frame) / height, nil
}

// Mock produces a moving test pattern. Used for development on PC or testing.
type Mock struct {
	mu     sync.Mutex
	width  int
	height int
	frames int
	err    error
	closed bool
}

// NewMock creates a test pattern source of the given size.
func NewMock(width, height int) *Mock {
	return &Mock{width: width, height: height}
}

// Read renders the next pattern frame.
func (m *Mock) Read() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.err != nil {
		return nil, m.err
	}
	m.frames++

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	band := m.width / 8
	if band == 0 {
		band = 1
	}
	offset := (m.frames * 4) % m.width
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			v := uint8(((x + offset) / band % 8) * 32)
			img.Set(x, y, color.RGBA{R: v, G: uint8(y * 255 / m.height), B: 255 - v, A: 255})
		}
	}
	return img, nil
}

// SetError makes subsequent reads fail with err (nil restores reads).
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Frames returns how many frames were read successfully.
func (m *Mock) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Close makes further reads fail with ErrClosed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
