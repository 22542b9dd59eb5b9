package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventOrderPlaced is published after an order is stored by the server.
const EventOrderPlaced = "order.placed"

const envelopeVersion = 1

// Envelope wraps every event published on the notification topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// OrderPlacedEvent carries the push content for a newly placed order.
type OrderPlacedEvent struct {
	UserID   string `json:"userId"`
	OrderID  string `json:"orderId"`
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
	Total    int64  `json:"total"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// NewOrderPlacedEvent fills in the customer-facing title and body.
func NewOrderPlacedEvent(userID, orderID, shopID, shopName string, total int64) OrderPlacedEvent {
	return OrderPlacedEvent{
		UserID:   userID,
		OrderID:  orderID,
		ShopID:   shopID,
		ShopName: shopName,
		Total:    total,
		Title:    "Order Placed Successfully",
		Body:     fmt.Sprintf("Your order at %s has been placed! Total: ₹%d", shopName, total),
	}
}

func newEnvelope(eventType string, data any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Data:       raw,
	}, nil
}
