package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	routingKey  string
	body        []byte
	contentType string
	err         error
}

func (p *stubPublisher) Publish(_ context.Context, routingKey string, body []byte, contentType string) error {
	p.routingKey = routingKey
	p.body = body
	p.contentType = contentType
	return p.err
}

func TestBrokerSink_Deliver(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewBrokerSink(pub)

	event := NewEvent(completedJob())
	err := sink.Deliver(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, "podcast.job.completed", pub.routingKey)
	assert.Equal(t, "application/json", pub.contentType)

	var decoded Event
	require.NoError(t, json.Unmarshal(pub.body, &decoded))
	assert.Equal(t, event.JobID, decoded.JobID)
	assert.Equal(t, event.EpisodeID, decoded.EpisodeID)
}

func TestBrokerSink_FailedEventRoutingKey(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewBrokerSink(pub)

	err := sink.Deliver(context.Background(), NewEvent(failedJob()))
	require.NoError(t, err)

	assert.Equal(t, "podcast.job.failed", pub.routingKey)
}

func TestBrokerSink_PublishError(t *testing.T) {
	pub := &stubPublisher{err: errors.New("channel closed")}
	sink := NewBrokerSink(pub)

	err := sink.Deliver(context.Background(), NewEvent(failedJob()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}
