package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/swiftcart-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	tests := []struct {
		project, kind, name, want string
	}{
		{"proj", "topics", "sc-notification-events", "projects/proj/topics/sc-notification-events"},
		{"proj", "subscriptions", " sub ", "projects/proj/subscriptions/sub"},
		{"proj", "topics", "projects/other/topics/t", "projects/other/topics/t"},
		{"", "topics", "t", ""},
		{"proj", "topics", "", ""},
	}
	for _, tt := range tests {
		if got := resourceName(tt.project, tt.kind, tt.name); got != tt.want {
			t.Fatalf("resourceName(%q,%q,%q) = %q, want %q", tt.project, tt.kind, tt.name, got, tt.want)
		}
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil || c.Subscription("s") != nil {
		t.Fatal("nil client should return nil handles")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured, got %v", err)
	}
	if err := c.EnsureSubscription(context.Background(), "s"); !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured, got %v", err)
	}
	if c.NotificationSubscription() != nil {
		t.Fatal("nil client should not build a subscriber")
	}
}

func TestClientOptionsPrefersInlineJSON(t *testing.T) {
	opts := clientOptions(config.GCPConfig{
		CredentialsJSON:        `{"type":"service_account"}`,
		ApplicationCredentials: "/tmp/creds.json",
	})
	if len(opts) != 1 {
		t.Fatalf("expected a single credential option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"}); len(opts) != 1 {
		t.Fatalf("expected file credentials option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
}
