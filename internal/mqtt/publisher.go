package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// FriendRequestMessage is the payload published for a new friend request.
type FriendRequestMessage struct {
	ToID    uint                    `json:"to_id"`
	Request datastore.FriendRequest `json:"request"`
	SentAt  time.Time               `json:"sent_at"`
}

// Publisher fans out friend requests to the recipient's topic.
type Publisher struct {
	client Client
	topic  string
	logger logger.Logger
	now    func() time.Time
}

// NewPublisher returns a publisher writing below the given topic prefix.
func NewPublisher(client Client, topic string, log logger.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		logger: log.Module("mqtt"),
		now:    time.Now,
	}
}

// RequestTopic returns the topic carrying friend requests for toID.
func (p *Publisher) RequestTopic(toID uint) string {
	return fmt.Sprintf("%s/users/%d/requests", p.topic, toID)
}

// PublishFriendRequest publishes req to the recipient's topic. Failures are
// logged and returned; callers treat them as best effort.
func (p *Publisher) PublishFriendRequest(ctx context.Context, toID uint, req datastore.FriendRequest) error {
	payload, err := json.Marshal(FriendRequestMessage{ToID: toID, Request: req, SentAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal friend request: %w", err)
	}

	topic := p.RequestTopic(toID)
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		p.logger.Warn("failed to publish friend request",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}
	return nil
}
