// Package keyboard reads arrow keys and escape from a raw terminal.
package keyboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
)

const (
	esc   = 0x1b
	ctrlC = 0x03
)

// Sink receives decoded key events; event.Loop.PostKey is the usual sink.
type Sink func(event.KeyEvent) bool

// Parse decodes one read from a raw terminal. Arrow right/left become
// KeyRight/KeyLeft, a lone ESC or Ctrl-C becomes KeyEscape, every other key
// becomes KeyNone.
func Parse(buf []byte) []event.Key {
	var keys []event.Key
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case ctrlC:
			keys = append(keys, event.KeyEscape)
		case esc:
			if i+2 < len(buf) && (buf[i+1] == '[' || buf[i+1] == 'O') {
				switch buf[i+2] {
				case 'C':
					keys = append(keys, event.KeyRight)
				case 'D':
					keys = append(keys, event.KeyLeft)
				default:
					keys = append(keys, event.KeyNone)
				}
				i += 2
				continue
			}
			keys = append(keys, event.KeyEscape)
		default:
			keys = append(keys, event.KeyNone)
		}
	}
	return keys
}

// Reader turns bytes from a terminal into key events.
type Reader struct {
	in   io.Reader
	sink Sink
}

// NewReader reads from in. The caller is responsible for raw mode; see Terminal.
func NewReader(in io.Reader, sink Sink) *Reader {
	return &Reader{in: in, sink: sink}
}

// Run reads until in returns an error or the sink refuses an event
// (the loop stopped). io.EOF is not reported.
func (r *Reader) Run() error {
	buf := make([]byte, 16)
	for {
		n, err := r.in.Read(buf)
		for _, k := range Parse(buf[:n]) {
			if !r.sink(event.KeyEvent{Key: k, Source: event.SourceKeyboard}) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read keyboard: %w", err)
		}
	}
}

// Terminal puts stdin in raw mode for the lifetime of the booth.
type Terminal struct {
	fd    int
	state *term.State
}

// OpenTerminal switches stdin to raw mode. It fails when stdin is not a
// terminal (e.g. under a service manager).
func OpenTerminal() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	debug.Verbose("Keyboard: terminal in raw mode")
	return &Terminal{fd: fd, state: state}, nil
}

// RawWriter rewrites bare LF line ends as CRLF. Output written while the
// terminal is in raw mode would otherwise staircase across the screen.
type RawWriter struct {
	w      io.Writer
	lastCR bool
}

// NewRawWriter wraps w.
func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: w}
}

func (r *RawWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' && !r.lastCR {
			out = append(out, '\r')
		}
		out = append(out, b)
		r.lastCR = b == '\r'
	}
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Reader returns a Reader on stdin.
func (t *Terminal) Reader(sink Sink) *Reader {
	return NewReader(os.Stdin, sink)
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	return term.Restore(t.fd, t.state)
}
