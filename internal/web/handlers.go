package web

import (
	"encoding/json"
	"image/jpeg"
	"io/fs"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/metrics"
)

const (
	maxKeyBodyBytes = 1 << 10
	previewQuality  = 80
)

// KeyFunc queues an on-screen key press; it returns false when the booth
// no longer accepts input.
type KeyFunc func(event.KeyEvent) bool

// KeyRequest is the body of POST /key.
type KeyRequest struct {
	Key string `json:"key"`
}

// PanelConfig holds the booth settings shown by the panel (from config).
type PanelConfig struct {
	CountdownStart  int    `json:"countdown_start"`
	CountdownTickMs int    `json:"countdown_tick_ms"`
	MaxPrintCount   int    `json:"max_print_count"`
	MinPhotos       int    `json:"min_photos"`
	PrintNotifyMs   int    `json:"print_notify_ms"`
	WebcamWidth     int    `json:"webcam_width"`
	WebcamHeight    int    `json:"webcam_height"`
	Printer         string `json:"printer"`
}

// NewPanelConfig extracts the panel settings from cfg.
func NewPanelConfig(cfg *config.Config) PanelConfig {
	printer := cfg.Printer.Type
	if cfg.Printer.Name != "" {
		printer += ":" + cfg.Printer.Name
	}
	return PanelConfig{
		CountdownStart:  cfg.Booth.CountdownStart,
		CountdownTickMs: cfg.Booth.CountdownTickMs,
		MaxPrintCount:   cfg.Booth.MaxPrintCount,
		MinPhotos:       cfg.Booth.MinPhotos,
		PrintNotifyMs:   cfg.Booth.PrintNotifyMs,
		WebcamWidth:     cfg.Webcam.Width,
		WebcamHeight:    cfg.Webcam.Height,
		Printer:         printer,
	}
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status            string   `json:"status"`
	StreamClients     int      `json:"stream_clients"`
	MemoryUsedPercent float64  `json:"memory_used_percent"`
	Load1             float64  `json:"load1"`
	DiskPath          string   `json:"disk_path"`
	DiskUsedPercent   float64  `json:"disk_used_percent"`
	DiskFreeBytes     uint64   `json:"disk_free_bytes"`
	Errors            []string `json:"errors,omitempty"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Panel       *Panel
	Keys        KeyFunc
	Config      PanelConfig
	DiskPath    string // filesystem reported by /health
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If keys is nil, POST /key will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, panel *Panel, keys KeyFunc, cfg PanelConfig, diskPath string, staticFS fs.FS) *Handlers {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Handlers{
		Broadcaster: broadcaster,
		Panel:       panel,
		Keys:        keys,
		Config:      cfg,
		DiskPath:    diskPath,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the booth settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleKey handles POST /key, the on-screen buttons. Screen keys are never
// subject to the button lockout.
func (h *Handlers) HandleKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxKeyBodyBytes)
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	key, ok := event.ParseKey(req.Key)
	if !ok {
		http.Error(w, "key must be one of left, right, escape", http.StatusBadRequest)
		return
	}

	if h.Keys == nil {
		http.Error(w, "booth not running", http.StatusServiceUnavailable)
		return
	}
	if !h.Keys(event.KeyEvent{Key: key, Source: event.SourceScreen}) {
		http.Error(w, "booth stopped", http.StatusServiceUnavailable)
		return
	}
	metrics.ScreenKeys.WithLabelValues(key.String()).Inc()
	debug.Verbose("Web: screen key %s", key)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "key": key.String()})
}

// HandleStatus returns the last session snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Panel.Status()
	if !ok {
		http.Error(w, "session not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePreview serves the picture on screen as JPEG.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	img := h.Panel.Preview()
	if img == nil {
		http.Error(w, "no preview", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		debug.Warn("Web: preview encode failed: %v", err)
	}
}

// HandleHealth reports host memory, load and the free space left for photos.
// Probe failures degrade the report instead of failing the request.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{
		Status:        "ok",
		StreamClients: h.Broadcaster.Clients(),
		DiskPath:      h.DiskPath,
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		report.MemoryUsedPercent = vm.UsedPercent
	} else {
		report.Errors = append(report.Errors, "memory: "+err.Error())
	}
	if avg, err := load.AvgWithContext(r.Context()); err == nil {
		report.Load1 = avg.Load1
	} else {
		report.Errors = append(report.Errors, "load: "+err.Error())
	}
	if usage, err := disk.UsageWithContext(r.Context(), h.DiskPath); err == nil {
		report.DiskUsedPercent = usage.UsedPercent
		report.DiskFreeBytes = usage.Free
	} else {
		report.Errors = append(report.Errors, "disk: "+err.Error())
	}
	if len(report.Errors) > 0 {
		report.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	if st, ok := h.Panel.Status(); ok {
		if data, err := json.Marshal(StatusEvent{
			Time:   h.Broadcaster.clock.Now().Format(time.RFC3339),
			Kind:   KindStatus,
			Status: rawJSON(st),
		}); err == nil {
			w.Write([]byte("data: " + string(data) + "\n\n"))
		}
	}
	flusher.Flush()

	// Heartbeat while idle
	ticker := h.Broadcaster.clock.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.Chan():
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func rawJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
