package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// startLoop runs l in the background and returns a channel receiving Run's result.
func startLoop(t *testing.T, l *Loop) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	t.Cleanup(cancel)
	return errc
}

// drain waits until every event posted so far has been dispatched.
func drain(t *testing.T, l *Loop) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Post(func() error { close(done); return nil }))
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("loop did not dispatch in time")
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"left", KeyLeft, true},
		{"RIGHT", KeyRight, true},
		{" escape ", KeyEscape, true},
		{"esc", KeyEscape, true},
		{"up", KeyNone, false},
		{"", KeyNone, false},
	}
	for _, tc := range cases {
		got, ok := ParseKey(tc.in)
		assert.Equal(t, tc.want, got, "ParseKey(%q)", tc.in)
		assert.Equal(t, tc.ok, ok, "ParseKey(%q) ok", tc.in)
	}
}

func TestLoop_KeyHandlersInRegistrationOrder(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	var order []string
	l.BindKeyEvent(func(ev KeyEvent) error { order = append(order, "first:"+ev.Key.String()); return nil })
	l.BindKeyEvent(func(ev KeyEvent) error { order = append(order, "second:"+ev.Key.String()); return nil })
	startLoop(t, l)

	l.PostKey(KeyEvent{Key: KeyLeft, Source: SourceKeyboard})
	l.PostKey(KeyEvent{Key: KeyRight, Source: SourceButton})
	drain(t, l)

	assert.Equal(t, []string{"first:left", "second:left", "first:right", "second:right"}, order)
}

func TestLoop_RepaintCoalesced(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	var paints atomic.Int32
	l.BindRepaint(func() error { paints.Add(1); return nil })
	startLoop(t, l)

	l.Post(func() error {
		l.RequestRepaint()
		l.RequestRepaint()
		l.RequestRepaint()
		return nil
	})
	drain(t, l)
	assert.Equal(t, int32(1), paints.Load(), "three requests in one cycle paint once")

	l.Post(func() error { return nil })
	drain(t, l)
	assert.Equal(t, int32(1), paints.Load(), "no request, no paint")

	l.Post(func() error { l.RequestRepaint(); return nil })
	drain(t, l)
	assert.Equal(t, int32(2), paints.Load())
}

func TestLoop_RepaintBeforeRunIsFlushed(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	var paints atomic.Int32
	l.BindRepaint(func() error { paints.Add(1); return nil })
	l.RequestRepaint()
	startLoop(t, l)
	drain(t, l)
	assert.Equal(t, int32(1), paints.Load())
}

func TestLoop_PeriodicTimerFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	var ticks atomic.Int32
	startLoop(t, l)

	l.Post(func() error {
		l.StartPeriodicTimer("tick", 100*time.Millisecond, func() error { ticks.Add(1); return nil })
		return nil
	})
	drain(t, l)

	for i := 1; i <= 3; i++ {
		clock.Advance(100 * time.Millisecond)
		want := int32(i)
		require.Eventually(t, func() bool { return ticks.Load() == want }, waitFor, time.Millisecond)
	}
}

func TestLoop_StopTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	var ticks atomic.Int32
	startLoop(t, l)

	l.Post(func() error {
		l.StartPeriodicTimer("tick", 100*time.Millisecond, func() error { ticks.Add(1); return nil })
		return nil
	})
	drain(t, l)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, waitFor, time.Millisecond)

	l.Post(func() error {
		l.StopTimer("tick")
		l.StopTimer("tick") // no-op
		l.StopTimer("never-started")
		return nil
	})
	drain(t, l)
	clock.Advance(time.Second)
	drain(t, l)
	assert.Equal(t, int32(1), ticks.Load())
}

func TestLoop_RestartReplacesHandler(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	var oldTicks, newTicks atomic.Int32
	startLoop(t, l)

	l.Post(func() error {
		l.StartPeriodicTimer("lights", 100*time.Millisecond, func() error { oldTicks.Add(1); return nil })
		l.StartPeriodicTimer("lights", 50*time.Millisecond, func() error { newTicks.Add(1); return nil })
		return nil
	})
	drain(t, l)

	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return newTicks.Load() == 1 }, waitFor, time.Millisecond)
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return newTicks.Load() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, int32(0), oldTicks.Load())
}

func TestLoop_StaleTickDropped(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	defer l.Stop()

	var first, second int
	l.StartPeriodicTimer("countdown", time.Second, func() error { first++; return nil })
	staleGen := l.timers["countdown"].gen
	l.StartPeriodicTimer("countdown", time.Second, func() error { second++; return nil })
	liveGen := l.timers["countdown"].gen

	require.NoError(t, l.fire("countdown", staleGen))
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, second)

	require.NoError(t, l.fire("countdown", liveGen))
	assert.Equal(t, 1, second)

	l.StopTimer("countdown")
	require.NoError(t, l.fire("countdown", liveGen))
	assert.Equal(t, 1, second, "tick queued before StopTimer is dropped")
	assert.False(t, l.Active("countdown"))
}

func TestLoop_HandlerErrorStopsRun(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	boom := errors.New("capture failed")
	l.BindKeyEvent(func(KeyEvent) error { return boom })
	errc := startLoop(t, l)

	l.PostKey(KeyEvent{Key: KeyRight})
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
	assert.False(t, l.Post(func() error { return nil }), "Post after stop")
}

func TestLoop_StopReturnsNil(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	errc := startLoop(t, l)

	l.Post(func() error { l.Stop(); return nil })
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
	l.Stop()
	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestLoop_ContextCancelReturnsNil(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
}
