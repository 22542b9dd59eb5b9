package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotConfigured     = errors.New("pubsub client not initialized")
)

// Client carries order events from the API to the notifications worker.
// Topics and subscriptions are provisioned outside the service; the Ensure
// helpers only confirm they exist.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client for %s: %w", projectID, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "gcp_project", projectID), "pubsub.connected")
	}
	return &Client{client: psClient, projectID: projectID, cfg: cfg}, nil
}

// clientOptions prefers inline JSON credentials, then a key file, then the
// ambient application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func (c *Client) ready() error {
	if c == nil || c.client == nil {
		return errNotConfigured
	}
	return nil
}

func (c *Client) EnsureTopic(ctx context.Context, name string) error {
	return c.ensure(ctx, kindTopic, name, func(full string) error {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		return err
	})
}

func (c *Client) EnsureSubscription(ctx context.Context, name string) error {
	return c.ensure(ctx, kindSubscription, name, func(full string) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		return err
	})
}

func (c *Client) ensure(ctx context.Context, kind, name string, get func(full string) error) error {
	if err := c.ready(); err != nil {
		return err
	}
	full := resourceName(c.projectID, kind, name)
	if full == "" {
		return fmt.Errorf("%s name %q not configured", kind, name)
	}
	switch err := get(full); {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("lookup %s: %w", full, err)
	}
}

// Subscription accepts an ID or a full resource name; nil when unresolvable.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c.ready() != nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationSubscription is the worker's subscriber, with flow control
// taken from config.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c.ready() != nil {
		return nil
	}
	sub := c.Subscription(c.cfg.NotificationSubscription)
	if sub == nil {
		return nil
	}
	if c.cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstandingMessages
	}
	if c.cfg.ReceiveGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = c.cfg.ReceiveGoroutines
	}
	return sub
}

func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c.ready() != nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) NotificationPublisher() *pubsub.Publisher {
	if c.ready() != nil {
		return nil
	}
	return c.Publisher(c.cfg.NotificationTopic)
}

// Ping checks that the notification topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.EnsureTopic(ctx, c.cfg.NotificationTopic)
}

func (c *Client) Close() error {
	if c.ready() != nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short ID to projects/<p>/<kind>/<id>; names that are
// already fully qualified pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
