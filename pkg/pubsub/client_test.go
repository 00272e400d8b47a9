package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrthis/hrthis-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/hr/topics/coins", TopicResourceName("hr", "coins"))
	assert.Equal(t, "projects/other/topics/coins", TopicResourceName("hr", "projects/other/topics/coins"))
	assert.Equal(t, "", TopicResourceName("hr", "  "))
	assert.Equal(t, "", TopicResourceName("", "coins"))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := TopicNames(config.PubSubConfig{CoinsTopic: " coins ", ShopTopic: ""})
	assert.Equal(t, []string{"coins"}, names)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{CoinsTopic: "coins"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("coins"))
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNewClientRequiresTopics(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "hr"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopics)
}
