package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

type topicPublisher struct {
	topic *gcppubsub.Publisher
}

func (p topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return p.topic.Publish(ctx, msg).Get(ctx)
}

// Publisher emits notification events.
type Publisher struct {
	publisher messagePublisher
	timeout   time.Duration
	now       func() time.Time
}

func NewPublisher(topic *gcppubsub.Publisher) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("notification topic required")
	}
	return &Publisher{publisher: topicPublisher{topic: topic}, timeout: 10 * time.Second, now: time.Now}, nil
}

// PublishOrderPlaced blocks until the broker acknowledges the event.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) (string, error) {
	envelope, err := newEnvelope(EventOrderPlaced, event, p.now())
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": EventOrderPlaced,
			"event_id":   envelope.EventID,
			"user_id":    event.UserID,
		},
	}
	if _, err := p.publisher.Publish(ctx, msg); err != nil {
		return "", fmt.Errorf("publish %s: %w", EventOrderPlaced, err)
	}
	return envelope.EventID, nil
}
