package booth

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/photobooth/internal/event"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/hw/printer"
	"github.com/cjeanneret/photobooth/internal/hw/webcam"
	"github.com/cjeanneret/photobooth/internal/storage"
)

const loopWait = 5 * time.Second

// loopSession runs a Session on a real event.Loop driven by a fake clock.
type loopSession struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	loop    *event.Loop
	session *Session
	store   *storage.PhotoStorage
	printer *printer.Mock
	log     []string
	errc    chan error
}

func newLoopSession(t *testing.T) *loopSession {
	t.Helper()
	ls := &loopSession{
		t:       t,
		clock:   clockwork.NewFakeClock(),
		printer: &printer.Mock{},
		errc:    make(chan error, 1),
	}
	ls.loop = event.NewLoop(ls.clock)
	ls.store = storage.New("", ls.clock)

	s, err := New(Deps{
		Context:  ls.loop,
		Clock:    ls.clock,
		Camera:   camera.NewWebcamCamera(webcam.NewMock(32, 24), ls.store),
		Photos:   ls.store,
		Composer: &recordingComposer{},
		Printer:  ls.printer,
		Renderer: &recordingRenderer{log: &ls.log},
		Left:     &led{},
		Right:    &led{},
		Exit:     ls.loop.Stop,
	}, DefaultSettings())
	require.NoError(t, err)
	ls.session = s

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { ls.errc <- ls.loop.Run(ctx) }()
	return ls
}

// readState asks the loop goroutine for the session state. It does not touch
// t, so it can run inside require.Eventually.
func (ls *loopSession) readState() (State, bool) {
	ch := make(chan State, 1)
	if !ls.loop.Post(func() error { ch <- ls.session.State(); return nil }) {
		return StateInit, false
	}
	select {
	case st := <-ch:
		return st, true
	case <-time.After(loopWait):
		return StateInit, false
	}
}

func (ls *loopSession) state() State {
	ls.t.Helper()
	st, ok := ls.readState()
	require.True(ls.t, ok, "loop did not answer")
	return st
}

func (ls *loopSession) key(k event.Key) {
	ls.t.Helper()
	require.True(ls.t, ls.loop.PostKey(event.KeyEvent{Key: k, Source: event.SourceKeyboard}))
}

// advanceUntil moves the clock one step at a time until the session reaches want.
func (ls *loopSession) advanceUntil(step time.Duration, want State) {
	ls.t.Helper()
	require.Eventually(ls.t, func() bool {
		ls.clock.Advance(step)
		st, ok := ls.readState()
		return ok && st == want
	}, loopWait, 5*time.Millisecond, "waiting for %s", want)
}

func TestSession_FullFlowOnEventLoop(t *testing.T) {
	ls := newLoopSession(t)
	settings := DefaultSettings()

	require.True(t, ls.loop.Post(ls.session.Start))
	require.Equal(t, StateStart, ls.state())

	ls.key(event.KeyRight)
	for shot := 1; shot <= 3; shot++ {
		require.Equal(t, StateCountdown, ls.state(), "shot %d", shot)
		ls.advanceUntil(settings.CountdownTick, StateReviewPhoto)
		ls.key(event.KeyRight)
	}
	require.Equal(t, StatePrintPhoto, ls.state())

	ls.key(event.KeyLeft)
	require.Equal(t, StatePrintPhoto, ls.state())
	ls.key(event.KeyRight)
	require.Equal(t, StateSentToPrint, ls.state())

	// the notify timer cannot have fired before its period
	for elapsed := time.Duration(0); elapsed+time.Second < settings.PrintNotify; elapsed += time.Second {
		ls.clock.Advance(time.Second)
	}
	assert.Equal(t, StateSentToPrint, ls.state())
	ls.advanceUntil(time.Second, StateStart)

	ls.key(event.KeyEscape)
	select {
	case err := <-ls.errc:
		require.NoError(t, err)
	case <-time.After(loopWait):
		t.Fatal("loop did not stop on escape")
	}

	// the loop goroutine has exited; its state is safe to read
	assert.Equal(t, StateExit, ls.session.State())
	jobs := ls.printer.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].Copies)
	assert.Equal(t, 0, ls.store.Len(), "photos cleared on the way back to Start")
	assert.Contains(t, ls.log, "show:sent-to-print")
	assert.Equal(t, "clear", ls.log[len(ls.log)-1])
}

func TestSession_StaleCountdownTickAfterEscape(t *testing.T) {
	ls := newLoopSession(t)

	require.True(t, ls.loop.Post(ls.session.Start))
	ls.key(event.KeyRight)
	require.Equal(t, StateCountdown, ls.state())

	// queue a countdown tick, then leave before it can matter
	ls.clock.Advance(DefaultSettings().CountdownTick)
	ls.key(event.KeyEscape)

	select {
	case err := <-ls.errc:
		require.NoError(t, err)
	case <-time.After(loopWait):
		t.Fatal("loop did not stop on escape")
	}
	assert.Equal(t, StateExit, ls.session.State())
	assert.Equal(t, 0, ls.store.Len(), "no photo taken after leaving the countdown")
}
