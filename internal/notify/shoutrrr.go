// Package notify delivers operator notifications through shoutrrr services.
package notify

import (
	"context"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// Notification is one message for operators.
type Notification struct {
	Title   string
	Message string
}

// Provider is a delivery backend. Providers must be safe for concurrent use.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// A single sender fans out to every configured URL.
type ShoutrrrProvider struct {
	name   string
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrProvider validates urls and builds the sender.
func NewShoutrrrProvider(urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_sender").
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrProvider{
		name:   serviceName(urls),
		urls:   slices.Clone(urls),
		sender: sender,
	}, nil
}

// Name returns the scheme of the first URL, or "shoutrrr" for mixed targets.
func (s *ShoutrrrProvider) Name() string { return s.name }

// Send delivers n to every URL and returns the first failure.
func (s *ShoutrrrProvider) Send(_ context.Context, n *Notification) error {
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return errors.New(err).
				Component("notify").
				Category(errors.CategoryIntegration).
				Context("operation", "send").
				Context("service", s.name).
				Build()
		}
	}
	return nil
}

// serviceName derives a low-cardinality label from the URL schemes.
func serviceName(urls []string) string {
	var name string
	for _, u := range urls {
		scheme, _, ok := strings.Cut(u, "://")
		if !ok {
			return "shoutrrr"
		}
		if name != "" && name != scheme {
			return "shoutrrr"
		}
		name = scheme
	}
	return name
}
