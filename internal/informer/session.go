package informer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// Event is one named payload produced by a tick.
type Event struct {
	Name string
	Data string
}

// Writer delivers events and keepalive comments to the client.
type Writer interface {
	WriteEvent(name, data string) error
	WriteComment(text string) error
}

// Observer receives session activity; the metrics package implements it.
type Observer interface {
	EventSent(channel string)
	InformerError(channel string)
	InformerPanic(channel string)
	TickCompleted(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) EventSent(string)            {}
func (noopObserver) InformerError(string)        {}
func (noopObserver) InformerPanic(string)        {}
func (noopObserver) TickCompleted(time.Duration) {}

// StreamConfig controls the Run loop.
type StreamConfig struct {
	PollInterval time.Duration // delay between ticks
	KeepAlive    time.Duration // interval between keepalive comments, 0 disables
	MaxDuration  time.Duration // stream lifetime, 0 for unlimited
}

type channel struct {
	name     string
	informer Informer
}

// Session drives the informers of one streaming connection.
// Informers are polled one after another on the goroutine calling Tick or Run.
type Session struct {
	id        string
	userID    uint
	startedAt time.Time
	logger    logger.Logger
	observer  Observer

	mu       sync.Mutex
	channels []channel

	wake chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithUserID records the user the session belongs to; zero means anonymous.
func WithUserID(id uint) Option {
	return func(s *Session) { s.userID = id }
}

// NewSession creates an empty session with a random id.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		observer:  noopObserver{},
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.NewConsoleLogger("informer", logger.LogLevelInfo)
	}
	s.logger = s.logger.With(logger.String("session_id", s.id))
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the user id the session was created for.
func (s *Session) UserID() uint { return s.userID }

// StartedAt returns the session creation time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Register adds an informer under name. Channels are polled in registration order.
func (s *Session) Register(name string, inf Informer) error {
	if name == "" || inf == nil {
		return errors.Newf("channel name and informer are required").
			Component("informer").
			Category(errors.CategoryValidation).
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.channels, func(c channel) bool { return c.name == name }) {
		return errors.Newf("channel %q already registered", name).
			Component("informer").
			Category(errors.CategoryConflict).
			Build()
	}
	s.channels = append(s.channels, channel{name: name, informer: inf})
	return nil
}

// Deregister removes the informer registered under name.
func (s *Session) Deregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.channels)
	s.channels = slices.DeleteFunc(s.channels, func(c channel) bool { return c.name == name })
	return len(s.channels) != before
}

// Active returns the registered channel names in polling order.
func (s *Session) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.channels))
	for i, c := range s.channels {
		names[i] = c.name
	}
	return names
}

// Wake makes a running session tick without waiting for the poll interval.
func (s *Session) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Tick polls every registered informer once and returns the events to send,
// in channel order. Terminal informers that are done are deregistered.
func (s *Session) Tick(ctx context.Context) []Event {
	start := time.Now()
	defer func() { s.observer.TickCompleted(time.Since(start)) }()

	s.mu.Lock()
	snapshot := slices.Clone(s.channels)
	s.mu.Unlock()

	var events []Event
	for _, ch := range snapshot {
		if ctx.Err() != nil {
			return events
		}

		payload, fire := s.poll(ctx, ch)
		if fire {
			events = append(events, Event{Name: ch.name, Data: payload})
		}

		if t, ok := ch.informer.(Terminal); ok && t.Done() {
			s.Deregister(ch.name)
			s.logger.Debug("informer finished", logger.String("channel", ch.name))
		}
	}
	return events
}

// poll runs one Check/Update pair, converting a panic into the generic error event.
func (s *Session) poll(ctx context.Context, ch channel) (payload string, fire bool) {
	defer func() {
		if r := recover(); r != nil {
			s.observer.InformerPanic(ch.name)
			_ = errors.Newf("informer panic: %v", r).
				Component("informer").
				Category(errors.CategoryBroadcast).
				Priority(errors.PriorityHigh).
				Context("operation", "informer_poll").
				Context("channel", ch.name).
				Build()
			s.logger.Error("informer panicked",
				logger.String("channel", ch.name),
				logger.String("panic", fmt.Sprint(r)))
			payload, fire = ErrorPayload(GenericError), true
		}
	}()

	if !ch.informer.Check(ctx) {
		return "", false
	}
	payload = ch.informer.Update()
	if isErrorPayload(payload) {
		s.observer.InformerError(ch.name)
	}
	return payload, true
}

// Run ticks until ctx is cancelled, the writer fails or MaxDuration elapses.
// The first tick happens immediately. It returns nil when the stream ends
// because the client went away or the stream expired.
func (s *Session) Run(ctx context.Context, cfg StreamConfig, w Writer) error {
	if cfg.PollInterval <= 0 {
		return errors.Newf("poll interval must be positive, got %s", cfg.PollInterval).
			Component("informer").
			Category(errors.CategoryValidation).
			Build()
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var keepAlive <-chan time.Time
	if cfg.KeepAlive > 0 {
		t := time.NewTicker(cfg.KeepAlive)
		defer t.Stop()
		keepAlive = t.C
	}

	var expired <-chan time.Time
	if cfg.MaxDuration > 0 {
		t := time.NewTimer(cfg.MaxDuration)
		defer t.Stop()
		expired = t.C
	}

	s.logger.Debug("event stream started", logger.Int("channels", len(s.Active())))
	defer s.logger.Debug("event stream stopped")

	emit := func() error {
		for _, ev := range s.Tick(ctx) {
			if err := w.WriteEvent(ev.Name, ev.Data); err != nil {
				return err
			}
			s.observer.EventSent(ev.Name)
		}
		return nil
	}

	if err := emit(); err != nil {
		return s.writeFailed(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-expired:
			return nil
		case <-keepAlive:
			if err := w.WriteComment("keepalive"); err != nil {
				return s.writeFailed(ctx, err)
			}
		case <-s.wake:
			if err := emit(); err != nil {
				return s.writeFailed(ctx, err)
			}
		case <-ticker.C:
			if err := emit(); err != nil {
				return s.writeFailed(ctx, err)
			}
		}
	}
}

// writeFailed treats write errors after disconnect as a normal end of stream.
func (s *Session) writeFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return errors.New(err).
		Component("informer").
		Category(errors.CategoryBroadcast).
		Context("operation", "write_event").
		Build()
}

func isErrorPayload(payload string) bool {
	return strings.HasPrefix(payload, `{"error":`)
}
