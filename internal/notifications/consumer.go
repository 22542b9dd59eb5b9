package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/swiftcart-backend/pkg/idempotency"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/push"
	"github.com/google/uuid"
)

const orderPushConsumer = "order-push"

type tokenReader interface {
	PushToken(ctx context.Context, uid string) (string, error)
}

type pushSender interface {
	Send(ctx context.Context, msg push.Message) error
}

// Consumer turns order events into Expo push notifications.
type Consumer struct {
	tokens       tokenReader
	sender       pushSender
	subscription *gcppubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

func NewConsumer(tokens tokenReader, sender pushSender, subscription *gcppubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token reader required")
	}
	if sender == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		tokens:       tokens,
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// processResult asks for redelivery when nack is set; everything else is acked.
type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventOrderPlaced {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{}
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}

	var event OrderPlacedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderPushConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	logCtx = c.logg.WithUserID(logCtx, event.UserID)
	logCtx = c.logg.WithOrderID(logCtx, event.OrderID)

	token, err := c.tokens.PushToken(ctx, event.UserID)
	if err != nil {
		c.logg.Error(logCtx, "failed to load push token", err)
		if relErr := c.idempotency.Release(ctx, orderPushConsumer, eventID); relErr != nil {
			c.logg.Error(logCtx, "idempotency release failed", relErr)
		}
		return processResult{nack: true}
	}
	if strings.TrimSpace(token) == "" || !push.IsExpoToken(token) {
		c.logg.Info(logCtx, "no push token registered")
		return processResult{}
	}

	err = c.sender.Send(ctx, push.Message{
		To:    token,
		Title: event.Title,
		Body:  event.Body,
		Data:  map[string]any{"orderId": event.OrderID, "shopId": event.ShopID},
	})
	switch {
	case err == nil:
		c.logg.Info(logCtx, "notifications.push_sent")
	case errors.Is(err, push.ErrDeviceNotRegistered):
		c.logg.Warn(logCtx, "push token no longer registered")
	default:
		// delivery is best effort; a failed send is logged and not retried
		c.logg.Error(logCtx, "push send failed", err)
	}
	return processResult{}
}
