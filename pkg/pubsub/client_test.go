package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatic-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/gatic/topics/inventory", TopicResourceName("gatic", "inventory"))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("gatic", "projects/other/topics/x"))
	assert.Empty(t, TopicResourceName("", "inventory"))
	assert.Empty(t, TopicResourceName("gatic", "  "))
}

func TestTopicNamesDeduplicates(t *testing.T) {
	names := TopicNames(config.PubSubConfig{
		InventoryTopic: "gatic-events",
		LoansTopic:     "gatic-events",
		TasksTopic:     " gatic-tasks ",
	})
	assert.Equal(t, []string{"gatic-events", "gatic-tasks"}, names)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{InventoryTopic: "x"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("inventory"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}
