package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/k3a/html2text"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

const (
	defaultQueueSize   = 64
	maxMessageLength   = 4000
	defaultSendTimeout = 10 * time.Second
)

// Recorder observes delivery outcomes; metrics.NotificationMetrics implements it.
type Recorder interface {
	RecordSend(service string, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordSend(string, error) {}

// FeedbackNotifier is the surface used by the HTTP layer.
type FeedbackNotifier interface {
	NotifyFeedback(fb *datastore.Feedback)
}

// Dispatcher delivers queued notifications on a single background worker.
// Enqueueing never blocks; when the queue is full the notification is dropped.
type Dispatcher struct {
	providers []Provider
	queue     chan *Notification
	logger    logger.Logger
	recorder  Recorder
	timeout   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder sets the delivery recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan *Notification, n)
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher returns a dispatcher for providers. Call Start before enqueueing.
func NewDispatcher(providers []Provider, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		providers: providers,
		queue:     make(chan *Notification, defaultQueueSize),
		logger:    log.Module("notify"),
		recorder:  noopRecorder{},
		timeout:   defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromSettings builds a dispatcher from the feedback notification settings.
// It returns nil when notifications are disabled.
func NewFromSettings(s *conf.NotifySettings, recorder Recorder, log logger.Logger) (*Dispatcher, error) {
	if !s.Enabled {
		return nil, nil
	}
	provider, err := NewShoutrrrProvider(s.URLs, s.Timeout)
	if err != nil {
		return nil, err
	}
	return NewDispatcher([]Provider{provider}, log, WithRecorder(recorder), WithTimeout(s.Timeout)), nil
}

// Start launches the worker. It is a no-op when already started.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.run(ctx)

	d.logger.Info("notification dispatcher started", logger.Int("providers", len(d.providers)))
}

// Stop halts the worker and waits for it to exit. Queued notifications are discarded.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Enqueue queues n for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(n *Notification) bool {
	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn("notification queue full, dropping notification", logger.String("title", n.Title))
		return false
	}
}

// NotifyFeedback queues an operator alert for newly stored feedback.
func (d *Dispatcher) NotifyFeedback(fb *datastore.Feedback) {
	d.Enqueue(FeedbackNotification(fb))
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) {
	for _, p := range d.providers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := p.Send(sendCtx, n)
		cancel()

		d.recorder.RecordSend(p.Name(), err)
		if err != nil {
			d.logger.Warn("notification delivery failed",
				logger.String("provider", p.Name()),
				logger.Error(err))
			continue
		}
		d.logger.Debug("notification delivered", logger.String("provider", p.Name()))
	}
}

// FeedbackNotification renders feedback as a plain-text notification.
func FeedbackNotification(fb *datastore.Feedback) *Notification {
	body := strings.TrimSpace(html2text.HTML2Text(fb.Description))
	if len(body) > maxMessageLength {
		body = body[:maxMessageLength] + "..."
	}
	return &Notification{
		Title:   fmt.Sprintf("New feedback from %s", html2text.HTML2Text(fb.Name)),
		Message: fmt.Sprintf("From: %s <%s>\n\n%s", html2text.HTML2Text(fb.Name), fb.Email, body),
	}
}
