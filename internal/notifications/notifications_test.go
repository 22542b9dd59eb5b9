package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/swiftcart-backend/pkg/idempotency"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/push"
)

type fakeIdempotencyStore struct {
	mu     sync.Mutex
	keys   map[string]bool
	err    error
	delErr error
}

func (f *fakeIdempotencyStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sc:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type stubTokens struct {
	token string
	err   error
}

func (s stubTokens) PushToken(context.Context, string) (string, error) { return s.token, s.err }

type recordingSender struct {
	sent []push.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg push.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type capturePublisher struct {
	msgs []*gcppubsub.Message
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	c.msgs = append(c.msgs, msg)
	return "server-id", c.err
}

func newTestConsumer(tokens tokenReader, sender pushSender) (*Consumer, *fakeIdempotencyStore) {
	store := &fakeIdempotencyStore{keys: map[string]bool{}}
	manager, _ := idempotency.NewManager(store, time.Hour)
	return &Consumer{
		tokens:      tokens,
		sender:      sender,
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}, store
}

func publishToMessage(t *testing.T, event OrderPlacedEvent) *gcppubsub.Message {
	t.Helper()
	capture := &capturePublisher{}
	p := &Publisher{publisher: capture, timeout: time.Second, now: time.Now}
	if _, err := p.PublishOrderPlaced(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return capture.msgs[0]
}

func TestNewOrderPlacedEventText(t *testing.T) {
	event := NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501)
	if event.Title != "Order Placed Successfully" {
		t.Fatalf("unexpected title %q", event.Title)
	}
	if event.Body != "Your order at Spice Route has been placed! Total: ₹501" {
		t.Fatalf("unexpected body %q", event.Body)
	}
}

func TestPublishOrderPlacedEnvelope(t *testing.T) {
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))
	if msg.Attributes["event_type"] != EventOrderPlaced || msg.Attributes["user_id"] != "u1" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || envelope.EventID != msg.Attributes["event_id"] {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestPublishOrderPlacedError(t *testing.T) {
	p := &Publisher{publisher: &capturePublisher{err: stdErrors.New("unavailable")}, timeout: time.Second, now: time.Now}
	if _, err := p.PublishOrderPlaced(context.Background(), OrderPlacedEvent{UserID: "u1"}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestConsumerSendsPushOnce(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(stubTokens{token: "ExponentPushToken[abc]"}, sender)
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))

	if res := consumer.process(context.Background(), msg); res.nack {
		t.Fatalf("expected ack, got %+v", res)
	}
	if res := consumer.process(context.Background(), msg); res.nack {
		t.Fatalf("expected ack on redelivery, got %+v", res)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one push, got %d", len(sender.sent))
	}
	sent := sender.sent[0]
	if sent.To != "ExponentPushToken[abc]" || sent.Title != "Order Placed Successfully" || sent.Data["orderId"] != "o1" {
		t.Fatalf("unexpected push %+v", sent)
	}
}

func TestConsumerSkipsWithoutToken(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(stubTokens{}, sender)
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))

	if res := consumer.process(context.Background(), msg); res.nack {
		t.Fatalf("expected ack, got %+v", res)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no push without token")
	}
}

func TestConsumerNacksOnTokenLookupFailure(t *testing.T) {
	sender := &recordingSender{}
	consumer, store := newTestConsumer(stubTokens{err: stdErrors.New("store down")}, sender)
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))

	if res := consumer.process(context.Background(), msg); !res.nack {
		t.Fatalf("expected nack, got %+v", res)
	}
	if len(store.keys) != 0 {
		t.Fatal("expected claim released for redelivery")
	}
}

func TestConsumerAcksSendFailure(t *testing.T) {
	sender := &recordingSender{err: push.ErrDeviceNotRegistered}
	consumer, _ := newTestConsumer(stubTokens{token: "ExponentPushToken[abc]"}, sender)
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))

	if res := consumer.process(context.Background(), msg); res.nack {
		t.Fatalf("expected ack, got %+v", res)
	}
}

func TestConsumerIgnoresOtherEvents(t *testing.T) {
	consumer, _ := newTestConsumer(stubTokens{}, &recordingSender{})
	msg := &gcppubsub.Message{ID: "m1", Attributes: map[string]string{"event_type": "other"}}
	if res := consumer.process(context.Background(), msg); res.nack {
		t.Fatalf("expected ack, got %+v", res)
	}

	bad := &gcppubsub.Message{ID: "m2", Attributes: map[string]string{"event_type": EventOrderPlaced}, Data: []byte("{")}
	if res := consumer.process(context.Background(), bad); res.nack {
		t.Fatalf("expected malformed payload to be acked, got %+v", res)
	}
}

func TestConsumerNacksWhenIdempotencyUnavailable(t *testing.T) {
	consumer, store := newTestConsumer(stubTokens{token: "ExponentPushToken[abc]"}, &recordingSender{})
	store.err = stdErrors.New("redis down")
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))
	if res := consumer.process(context.Background(), msg); !res.nack {
		t.Fatalf("expected nack, got %+v", res)
	}
}

func TestConsumerLogsFailedRelease(t *testing.T) {
	var buf bytes.Buffer
	consumer, store := newTestConsumer(stubTokens{err: stdErrors.New("store down")}, &recordingSender{})
	consumer.logg = logger.New(logger.Options{ServiceName: "test", Output: &buf})
	store.delErr = stdErrors.New("redis down")
	msg := publishToMessage(t, NewOrderPlacedEvent("u1", "o1", "s1", "Spice Route", 501))

	if res := consumer.process(context.Background(), msg); !res.nack {
		t.Fatalf("expected nack, got %+v", res)
	}
	if !strings.Contains(buf.String(), "idempotency release failed") {
		t.Fatalf("expected release failure logged, got %s", buf.String())
	}
}
