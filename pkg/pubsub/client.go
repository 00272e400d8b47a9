// Package pubsub owns the Google Cloud Pub/Sub connection used by the
// outbox publisher. Only the topics named in config can be published to.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("no pubsub topics configured")
	errClosed            = errors.New("pubsub client not initialized")
)

type Client struct {
	api *pubsub.Client

	// topic id or resource name as configured -> full resource name
	topics map[string]string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails when a configured topic is
// missing. Credentials come from HRTHIS_GOOGLE_APPLICATION_CREDENTIALS when
// set and from the ambient environment otherwise; PUBSUB_EMULATOR_HOST is
// honoured by the SDK.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := map[string]string{}
	for _, name := range TopicNames(cfg) {
		topics[name] = TopicResourceName(project, name)
	}
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	var opts []option.ClientOption
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	api, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{api: api, topics: topics, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", TopicNames(cfg)), "pubsub client initialized")
	}
	return c, nil
}

// Publisher returns the cached publisher for a configured topic, or nil when
// the topic was never configured.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.api == nil {
		return nil
	}
	resource, ok := c.topics[strings.TrimSpace(name)]
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[resource]
	if !ok {
		p = c.api.Publisher(resource)
		c.publishers[resource] = p
	}
	return p
}

// Ping checks that every configured topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errClosed
	}
	g, gctx := errgroup.WithContext(ctx)
	for name, resource := range c.topics {
		g.Go(func() error {
			_, err := c.api.TopicAdminClient.GetTopic(gctx, &pubsubpb.GetTopicRequest{Topic: resource})
			switch {
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("topic %q does not exist", name)
			case err != nil:
				return fmt.Errorf("checking topic %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close flushes pending messages and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.publishers {
		p.Stop()
	}
	clear(c.publishers)
	c.mu.Unlock()
	return c.api.Close()
}

// TopicNames lists the configured topics, trimmed, skipping blanks.
func TopicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, n := range []string{cfg.CoinsTopic, cfg.ShopTopic} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// TopicResourceName turns a bare topic id into projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
