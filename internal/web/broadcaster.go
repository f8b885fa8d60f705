package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cjeanneret/photobooth/internal/metrics"
)

// Event kinds sent on the status stream.
const (
	KindLog    = "log"
	KindStatus = "status"
)

// StatusEvent is a single message on the status stream. Log lines carry
// Level and Msg, session updates carry Status.
type StatusEvent struct {
	Time   string          `json:"t"`
	Kind   string          `json:"kind"`
	Level  string          `json:"l,omitempty"`
	Msg    string          `json:"msg,omitempty"`
	Status json.RawMessage `json:"status,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster stamping events with clock.
func NewStatusBroadcaster(clock clockwork.Clock) *StatusBroadcaster {
	return &StatusBroadcaster{
		clock:   clock,
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	metrics.StatusStreamClients.Set(float64(len(b.clients)))
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			metrics.StatusStreamClients.Set(float64(len(b.clients)))
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribers.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a log line to all subscribed clients.
// Messages are sent as JSON: {"t":"...","kind":"log","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Kind: KindLog, Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastStatus sends a session snapshot to all subscribed clients.
func (b *StatusBroadcaster) BroadcastStatus(status any) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	b.send(StatusEvent{Kind: KindStatus, Status: data})
	return nil
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	evt.Time = b.clock.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if msg := strings.TrimSpace(line); msg != "" {
			w.b.BroadcastMsg(msg)
		}
	}
	return len(p), nil
}
