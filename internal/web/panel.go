package web

import (
	"image"
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/logic/booth"
	"github.com/cjeanneret/photobooth/internal/view"
)

// Panel holds what web clients see: the last painted frame and the last
// session status. Paint and Publish run on the event loop, readers are HTTP
// goroutines.
type Panel struct {
	broadcaster *StatusBroadcaster

	mu        sync.RWMutex
	frame     view.Frame
	status    booth.Status
	hasStatus bool
}

// NewPanel creates a panel forwarding status updates to b (may be nil).
func NewPanel(b *StatusBroadcaster) *Panel {
	return &Panel{broadcaster: b}
}

// Paint implements view.Sink.
func (p *Panel) Paint(f view.Frame) error {
	p.mu.Lock()
	p.frame = f
	p.mu.Unlock()
	return nil
}

// Publish records a session snapshot and pushes it to the status stream.
// It matches booth.Deps.Observer.
func (p *Panel) Publish(st booth.Status) {
	p.mu.Lock()
	p.status = st
	p.hasStatus = true
	p.mu.Unlock()

	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.BroadcastStatus(st); err != nil {
		debug.Error(err)
	}
}

// Status returns the last published snapshot.
func (p *Panel) Status() (booth.Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, p.hasStatus
}

// Screen returns the screen of the last painted frame.
func (p *Panel) Screen() view.Screen {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frame.Screen
}

// Preview returns the picture currently on screen: the live webcam frame
// on live screens, the photo or print sheet otherwise. nil when the screen
// is blank.
func (p *Panel) Preview() image.Image {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.frame.Visible {
		return nil
	}
	if p.frame.Preview != nil {
		return p.frame.Preview
	}
	return p.frame.Screen.Photo
}
