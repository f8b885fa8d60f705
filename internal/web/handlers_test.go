package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/logic/booth"
	"github.com/cjeanneret/photobooth/internal/view"
)

// ---------- Handler helpers ----------

type keyRecorder struct {
	mu     sync.Mutex
	events []event.KeyEvent
	refuse bool
}

func (k *keyRecorder) post(ev event.KeyEvent) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.refuse {
		return false
	}
	k.events = append(k.events, ev)
	return true
}

func newTestHandlers(t *testing.T, keys KeyFunc) *Handlers {
	t.Helper()
	staticFS := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>test</html>")},
	}
	b := newTestBroadcaster()
	return NewHandlers(
		b,
		NewPanel(b),
		keys,
		PanelConfig{
			CountdownStart: 3,
			MaxPrintCount:  3,
			MinPhotos:      3,
			Printer:        "mock",
		},
		t.TempDir(),
		staticFS,
	)
}

func keyBody(key string) *bytes.Reader {
	data, _ := json.Marshal(KeyRequest{Key: key})
	return bytes.NewReader(data)
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

// ---------- HandleKey ----------

func TestHandleKey_ValidPost(t *testing.T) {
	rec := &keyRecorder{}
	h := newTestHandlers(t, rec.post)
	req := httptest.NewRequest(http.MethodPost, "/key", keyBody("right"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleKey(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "queued" || resp["key"] != "right" {
		t.Errorf("response = %v, want queued/right", resp)
	}

	want := []event.KeyEvent{{Key: event.KeyRight, Source: event.SourceScreen}}
	if len(rec.events) != 1 || rec.events[0] != want[0] {
		t.Errorf("posted = %v, want %v", rec.events, want)
	}
}

func TestHandleKey_AllKeys(t *testing.T) {
	cases := map[string]event.Key{
		"left":   event.KeyLeft,
		"Right":  event.KeyRight,
		"escape": event.KeyEscape,
		"esc":    event.KeyEscape,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			rec := &keyRecorder{}
			h := newTestHandlers(t, rec.post)
			w := httptest.NewRecorder()
			h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", keyBody(in)))

			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
			}
			if rec.events[0].Key != want {
				t.Errorf("key = %v, want %v", rec.events[0].Key, want)
			}
		})
	}
}

func TestHandleKey_GetMethodNotAllowed(t *testing.T) {
	h := newTestHandlers(t, (&keyRecorder{}).post)
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodGet, "/key", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleKey_InvalidJSON(t *testing.T) {
	h := newTestHandlers(t, (&keyRecorder{}).post)
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", strings.NewReader("not json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleKey_UnknownKey(t *testing.T) {
	rec := &keyRecorder{}
	h := newTestHandlers(t, rec.post)
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", keyBody("up")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(rec.events) != 0 {
		t.Errorf("unknown key was posted: %v", rec.events)
	}
}

func TestHandleKey_OversizedBody(t *testing.T) {
	h := newTestHandlers(t, (&keyRecorder{}).post)
	big := `{"key":"` + strings.Repeat("x", 2<<10) + `"}`
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", strings.NewReader(big)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d (oversized body)", w.Code, http.StatusBadRequest)
	}
}

func TestHandleKey_NoSink(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", keyBody("left")))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleKey_BoothStopped(t *testing.T) {
	h := newTestHandlers(t, (&keyRecorder{refuse: true}).post)
	w := httptest.NewRecorder()

	h.HandleKey(w, httptest.NewRequest(http.MethodPost, "/key", keyBody("left")))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ---------- HandleConfig ----------

func TestHandleConfig(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.HandleConfig(w, httptest.NewRequest(http.MethodGet, "/config", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var pc PanelConfig
	if err := json.NewDecoder(w.Body).Decode(&pc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pc.CountdownStart != 3 {
		t.Errorf("CountdownStart = %d, want 3", pc.CountdownStart)
	}
	if pc.MaxPrintCount != 3 {
		t.Errorf("MaxPrintCount = %d, want 3", pc.MaxPrintCount)
	}
	if pc.Printer != "mock" {
		t.Errorf("Printer = %q, want mock", pc.Printer)
	}
}

func TestNewPanelConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Booth.CountdownStart = 5
	cfg.Booth.MinPhotos = 6
	cfg.Printer.Type = "cups"
	cfg.Printer.Name = "Canon_SELPHY_CP1300"
	cfg.Webcam.Width = 1280

	pc := NewPanelConfig(cfg)

	if pc.CountdownStart != 5 || pc.MinPhotos != 6 || pc.WebcamWidth != 1280 {
		t.Errorf("unexpected panel config: %+v", pc)
	}
	if pc.Printer != "cups:Canon_SELPHY_CP1300" {
		t.Errorf("Printer = %q, want cups:Canon_SELPHY_CP1300", pc.Printer)
	}
}

// ---------- ServeIndex ----------

func TestServeIndex(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.ServeIndex(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("body should contain HTML content")
	}
}

// ---------- HandleStatus ----------

func TestHandleStatus_BeforeStart(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleStatus_LastPublished(t *testing.T) {
	h := newTestHandlers(t, nil)
	h.Panel.Publish(booth.Status{State: "Start", PrintCount: 1, MaxPrintCount: 3})
	h.Panel.Publish(booth.Status{State: "Countdown", Countdown: 2, PrintCount: 1, MaxPrintCount: 3, Photos: 1})
	w := httptest.NewRecorder()

	h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var st booth.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "Countdown" || st.Countdown != 2 || st.Photos != 1 {
		t.Errorf("status = %+v", st)
	}
}

// ---------- HandlePreview ----------

func TestHandlePreview_NothingPainted(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.HandlePreview(w, httptest.NewRequest(http.MethodGet, "/preview.jpg", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandlePreview_HiddenFrame(t *testing.T) {
	h := newTestHandlers(t, nil)
	h.Panel.Paint(view.Frame{Screen: view.Screen{Kind: view.KindStart}, Preview: testImage()})
	w := httptest.NewRecorder()

	h.HandlePreview(w, httptest.NewRequest(http.MethodGet, "/preview.jpg", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandlePreview_LiveFrame(t *testing.T) {
	h := newTestHandlers(t, nil)
	h.Panel.Paint(view.Frame{Screen: view.Screen{Kind: view.KindCountdown, Count: 2}, Visible: true, Preview: testImage()})
	w := httptest.NewRecorder()

	h.HandlePreview(w, httptest.NewRequest(http.MethodGet, "/preview.jpg", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	img, err := jpeg.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 12 {
		t.Errorf("bounds = %v, want 16x12", img.Bounds())
	}
}

func TestHandlePreview_StillScreenShowsPhoto(t *testing.T) {
	h := newTestHandlers(t, nil)
	photo := image.NewRGBA(image.Rect(0, 0, 30, 45))
	h.Panel.Paint(view.Frame{Screen: view.Screen{Kind: view.KindPrintPhoto, Photo: photo}, Visible: true})
	w := httptest.NewRecorder()

	h.HandlePreview(w, httptest.NewRequest(http.MethodGet, "/preview.jpg", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	img, err := jpeg.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Dx() != 30 {
		t.Errorf("width = %d, want 30", img.Bounds().Dx())
	}
	if h.Panel.Screen().Kind != view.KindPrintPhoto {
		t.Errorf("screen = %v, want print-photo", h.Panel.Screen().Kind)
	}
}

// ---------- HandleHealth ----------

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t, nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var report HealthReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != "ok" && report.Status != "degraded" {
		t.Errorf("status = %q, want ok or degraded", report.Status)
	}
	if report.DiskPath != h.DiskPath {
		t.Errorf("disk path = %q, want %q", report.DiskPath, h.DiskPath)
	}
}

func TestHandleHealth_MissingDiskDegrades(t *testing.T) {
	h := newTestHandlers(t, nil)
	h.DiskPath = "/does/not/exist/photobooth"
	w := httptest.NewRecorder()

	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var report HealthReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != "degraded" {
		t.Errorf("status = %q, want degraded", report.Status)
	}
	found := false
	for _, e := range report.Errors {
		if strings.HasPrefix(e, "disk: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a disk error", report.Errors)
	}
}

// ---------- HandleStatusStream ----------

func readData(t *testing.T, r *bufio.Reader) StatusEvent {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			var evt StatusEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				t.Fatalf("unmarshal %q: %v", data, err)
			}
			return evt
		}
	}
}

func TestHandleStatusStream(t *testing.T) {
	h := newTestHandlers(t, nil)
	h.Panel.Publish(booth.Status{State: "Start", PrintCount: 1, MaxPrintCount: 3})

	srv := httptest.NewServer(http.HandlerFunc(h.HandleStatusStream))
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	r := bufio.NewReader(resp.Body)

	first := readData(t, r)
	if first.Kind != KindStatus || !strings.Contains(string(first.Status), `"state":"Start"`) {
		t.Errorf("first event = %+v, want the current status", first)
	}

	h.Broadcaster.BroadcastMsg("state change")
	next := readData(t, r)
	if next.Kind != KindLog || next.Msg != "state change" {
		t.Errorf("next event = %+v, want log line", next)
	}
}

// ---------- Routes ----------

func TestServerMux(t *testing.T) {
	b := newTestBroadcaster()
	rec := &keyRecorder{}
	srv, err := NewServer(":0", b, NewPanel(b), rec.post, PanelConfig{MaxPrintCount: 3}, t.TempDir())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	mux := srv.Mux()

	cases := []struct {
		method string
		path   string
		body   string
		want   int
		substr string
	}{
		{http.MethodGet, "/", "", http.StatusOK, "Photobooth"},
		{http.MethodGet, "/static/panel.js", "", http.StatusOK, "EventSource"},
		{http.MethodGet, "/config", "", http.StatusOK, `"max_print_count":3`},
		{http.MethodGet, "/status", "", http.StatusServiceUnavailable, ""},
		{http.MethodGet, "/preview.jpg", "", http.StatusNotFound, ""},
		{http.MethodPost, "/key", `{"key":"left"}`, http.StatusAccepted, "queued"},
		{http.MethodGet, "/key", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/metrics", "", http.StatusOK, "photobooth_"},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.substr != "" && !strings.Contains(w.Body.String(), tc.substr) {
				t.Errorf("body does not contain %q", tc.substr)
			}
		})
	}
	if len(rec.events) != 1 || rec.events[0].Source != event.SourceScreen {
		t.Errorf("posted = %v, want one screen key", rec.events)
	}
}
