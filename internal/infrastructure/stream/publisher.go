// Package stream implements the orders event bus on Redis Streams.
package stream

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream"
)

// dataField is the single stream field carrying the JSON event payload.
const dataField = "data"

// Publisher appends order-submitted events to the orders stream.
type Publisher struct {
	client redisstream.Client
	stream string
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher for the given stream.
func NewPublisher(client redisstream.Client, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
	}
}

// PublishOrderSubmitted appends the event and returns its stream id. It
// returns once the entry is durably recorded in the stream.
func (p *Publisher) PublishOrderSubmitted(ctx context.Context, event domain.OrderSubmittedEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", errors.NewTracer("failed to marshal order event").Wrap(err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			dataField: string(payload),
		},
	})
	if err != nil {
		return "", err
	}

	return id, nil
}
