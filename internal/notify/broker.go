package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// routingKeyPrefix namespaces job events on the topic exchange. Consumers
// bind with patterns such as "podcast.job.*" or "podcast.job.failed".
const routingKeyPrefix = "podcast.job."

// publisher is the broker surface the sink needs. *rabbitmq.Client satisfies it.
type publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// BrokerSink publishes event payloads to a message broker exchange.
type BrokerSink struct {
	broker publisher
}

// NewBrokerSink creates a broker sink over an established broker client.
func NewBrokerSink(broker publisher) *BrokerSink {
	return &BrokerSink{broker: broker}
}

// Deliver publishes the event under the routing key podcast.job.<event>.
func (s *BrokerSink) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	routingKey := routingKeyPrefix + event.Event
	if err := s.broker.Publish(ctx, routingKey, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
