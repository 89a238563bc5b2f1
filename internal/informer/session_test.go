package informer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInformer fires on the ticks listed in fireOn (1-based) and can panic.
type fakeInformer struct {
	tick     int
	fireOn   map[int]bool
	payload  string
	panicMsg string
	checks   int
}

func (f *fakeInformer) Check(context.Context) bool {
	f.tick++
	f.checks++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.fireOn[f.tick]
}

func (f *fakeInformer) Update() string { return f.payload }

// recordingWriter collects what Run writes.
type recordingWriter struct {
	mu       sync.Mutex
	events   []Event
	comments int
	failOn   int
	writes   int
}

func (w *recordingWriter) WriteEvent(name, data string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	if w.failOn > 0 && w.writes >= w.failOn {
		return assert.AnError
	}
	w.events = append(w.events, Event{Name: name, Data: data})
	return nil
}

func (w *recordingWriter) WriteComment(string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.comments++
	return nil
}

func (w *recordingWriter) snapshot() ([]Event, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.events...), w.comments
}

// countingObserver records observer callbacks.
type countingObserver struct {
	sent, errs, panics, ticks atomic.Int32
}

func (o *countingObserver) EventSent(string)            { o.sent.Add(1) }
func (o *countingObserver) InformerError(string)        { o.errs.Add(1) }
func (o *countingObserver) InformerPanic(string)        { o.panics.Add(1) }
func (o *countingObserver) TickCompleted(time.Duration) { o.ticks.Add(1) }

func newTestSession(opts ...Option) *Session {
	return NewSession(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestSessionRegisterOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	require.NoError(t, s.Register(ChannelUserInfo, NewProfileInformer()))
	require.NoError(t, s.Register(ChannelRequestInfo, &fakeInformer{}))

	assert.Equal(t, []string{ChannelUserInfo, ChannelRequestInfo}, s.Active())
	assert.Error(t, s.Register(ChannelUserInfo, NewProfileInformer()))
	assert.Error(t, s.Register("", NewProfileInformer()))

	assert.True(t, s.Deregister(ChannelUserInfo))
	assert.False(t, s.Deregister(ChannelUserInfo))
	assert.Equal(t, []string{ChannelRequestInfo}, s.Active())
	assert.NotEmpty(t, s.ID())
}

func TestSessionTickEmitsInChannelOrder(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	a := &fakeInformer{fireOn: map[int]bool{1: true, 3: true}, payload: "a"}
	b := &fakeInformer{fireOn: map[int]bool{1: true, 2: true}, payload: "b"}
	require.NoError(t, s.Register("a", a))
	require.NoError(t, s.Register("b", b))

	ctx := t.Context()
	assert.Equal(t, []Event{{"a", "a"}, {"b", "b"}}, s.Tick(ctx))
	assert.Equal(t, []Event{{"b", "b"}}, s.Tick(ctx))
	assert.Equal(t, []Event{{"a", "a"}}, s.Tick(ctx))
	assert.Empty(t, s.Tick(ctx))
}

func TestSessionDeregistersTerminalInformerAfterUpdate(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	profile := NewProfileInformer()
	requests := newRequestInformer(&scriptedSource{responses: []sourceResponse{ok(req(5))}})
	require.NoError(t, s.Register(ChannelUserInfo, profile))
	require.NoError(t, s.Register(ChannelRequestInfo, requests))

	ctx := t.Context()

	// Profile not initialized yet: it stays registered and silent.
	events := s.Tick(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, ChannelRequestInfo, events[0].Name)
	assert.Equal(t, []string{ChannelUserInfo, ChannelRequestInfo}, s.Active())

	profile.SetUser(UserSnapshot{ID: 42, FirstName: "Aditya", LastName: "Nathwani", Email: "a@example.com"})
	events = s.Tick(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, ChannelUserInfo, events[0].Name)
	assert.Equal(t, []string{ChannelRequestInfo}, s.Active(), "profile is retired right after sending")

	for range 5 {
		assert.Empty(t, s.Tick(ctx))
	}
}

func TestSessionProfileErrorThenDeregistered(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	profile := NewProfileInformer()
	profile.SetError(GenericError)
	require.NoError(t, s.Register(ChannelUserInfo, profile))

	events := s.Tick(t.Context())
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"error":"internal error occurd"}`, events[0].Data)
	assert.Empty(t, s.Active())
	assert.Empty(t, s.Tick(t.Context()))
}

func TestSessionIsolatesPanickingInformer(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	s := newTestSession(WithObserver(obs))
	bad := &fakeInformer{panicMsg: "nil map write"}
	good := &fakeInformer{fireOn: map[int]bool{1: true, 2: true}, payload: "ok"}
	require.NoError(t, s.Register("bad", bad))
	require.NoError(t, s.Register("good", good))

	for range 2 {
		events := s.Tick(t.Context())
		require.Len(t, events, 2)
		assert.Equal(t, Event{"bad", `{"error":"internal error occurd"}`}, events[0])
		assert.Equal(t, Event{"good", "ok"}, events[1])
		assert.NotContains(t, events[0].Data, "nil map", "panic details never reach the client")
	}

	assert.Equal(t, int32(2), obs.panics.Load())
	assert.Equal(t, int32(2), obs.ticks.Load())
	assert.Equal(t, []string{"bad", "good"}, s.Active())
}

func TestSessionTickStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	a := &fakeInformer{fireOn: map[int]bool{1: true}}
	require.NoError(t, s.Register("a", a))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Empty(t, s.Tick(ctx))
	assert.Zero(t, a.checks)
}

func TestSessionRunStreamsUntilCancelled(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	s := newTestSession(WithObserver(obs))
	src := &scriptedSource{responses: []sourceResponse{ok(req(5)), ok(req(5)), ok(req(7), req(5))}}
	profile := NewProfileInformer()
	profile.SetUser(UserSnapshot{ID: 42, FirstName: "Aditya", LastName: "Nathwani", Email: "a@example.com"})
	require.NoError(t, s.Register(ChannelUserInfo, profile))
	require.NoError(t, s.Register(ChannelRequestInfo, newRequestInformer(src)))

	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, StreamConfig{PollInterval: 5 * time.Millisecond, KeepAlive: 2 * time.Millisecond}, w)
	}()

	require.Eventually(t, func() bool {
		events, comments := w.snapshot()
		return len(events) == 3 && comments > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	events, _ := w.snapshot()
	assert.Equal(t, ChannelUserInfo, events[0].Name)
	assert.Equal(t, ChannelRequestInfo, events[1].Name)
	assert.Equal(t, ChannelRequestInfo, events[2].Name)
	assert.Equal(t, []int64{7, 5}, idsOf(t, events[2].Data))
	assert.Equal(t, int32(3), obs.sent.Load())
}

func TestSessionRunExpires(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	w := &recordingWriter{}
	err := s.Run(t.Context(), StreamConfig{PollInterval: time.Millisecond, MaxDuration: 20 * time.Millisecond}, w)
	assert.NoError(t, err)
}

func TestSessionRunWriterFailure(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	require.NoError(t, s.Register("a", &fakeInformer{fireOn: map[int]bool{1: true}, payload: "x"}))

	err := s.Run(t.Context(), StreamConfig{PollInterval: time.Millisecond}, &recordingWriter{failOn: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSessionRunRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	err := newTestSession().Run(t.Context(), StreamConfig{}, &recordingWriter{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "poll interval"))
}

func TestSessionWakeTicksEarly(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	f := &fakeInformer{fireOn: map[int]bool{2: true}, payload: "woken"}
	require.NoError(t, s.Register("a", f))

	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, StreamConfig{PollInterval: time.Hour}, w) }()

	// The first tick runs immediately; the second only happens on wake.
	require.Eventually(t, func() bool {
		s.Wake()
		events, _ := w.snapshot()
		return len(events) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
