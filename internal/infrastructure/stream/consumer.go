package stream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream"
)

// ConsumerConfig controls consumer-group behaviour over the orders stream.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string

	// BatchSize is the maximum entries returned per Read.
	BatchSize int64
	// BlockTimeout bounds how long Read blocks when no entries are
	// available, so the caller can observe cancellation between reads.
	BlockTimeout time.Duration
	// ClaimMinIdle is how long an entry must sit pending before another
	// consumer may claim it.
	ClaimMinIdle time.Duration
	// MaxDeliveries caps redelivery; entries past it go to the dead-letter
	// stream instead of looping forever.
	MaxDeliveries int64
}

// Consumer is a consumer-group member over the orders stream.
type Consumer struct {
	client redisstream.Client
	logger logger.Interface
	config ConsumerConfig
}

var _ domain.EventConsumer = (*Consumer)(nil)

// NewConsumer creates a consumer-group member.
func NewConsumer(client redisstream.Client, log logger.Interface, config ConsumerConfig) *Consumer {
	return &Consumer{
		client: client,
		logger: log,
		config: config,
	}
}

// DeadLetterStream returns the stream that receives entries past the
// delivery cap.
func (c *Consumer) DeadLetterStream() string {
	return c.config.Stream + ":dlq"
}

// EnsureGroup creates the consumer group, creating the stream alongside it.
// Calling it for an existing group is a no-op.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	return c.client.XGroupCreateMkStream(ctx, c.config.Stream, c.config.Group, "0")
}

// Read returns entries not yet delivered to the group, assigning them to this
// consumer. It blocks up to BlockTimeout and returns an empty batch on
// timeout.
func (c *Consumer) Read(ctx context.Context) ([]domain.StreamMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		Streams:  []string{c.config.Stream, ">"},
		Count:    c.config.BatchSize,
		Block:    c.config.BlockTimeout,
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.StreamMessage
	for _, s := range streams {
		for _, m := range s.Messages {
			messages = append(messages, toStreamMessage(m, 1))
		}
	}

	return messages, nil
}

// ReclaimPending claims entries that have sat pending past ClaimMinIdle,
// typically because a consumer crashed between read and ack. Entries whose
// delivery count exceeds MaxDeliveries are copied to the dead-letter stream
// and acked instead of being returned.
func (c *Consumer) ReclaimPending(ctx context.Context) ([]domain.StreamMessage, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.config.Stream,
		Group:  c.config.Group,
		Start:  "-",
		End:    "+",
		Count:  c.config.BatchSize,
		Idle:   c.config.ClaimMinIdle,
	})
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return nil, nil
	}

	deliveries := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
		deliveries[p.ID] = p.RetryCount
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.config.Stream,
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		MinIdle:  c.config.ClaimMinIdle,
		Messages: ids,
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.StreamMessage
	for _, m := range claimed {
		count := deliveries[m.ID]
		if c.config.MaxDeliveries > 0 && count > c.config.MaxDeliveries {
			if err := c.deadLetter(ctx, m, count); err != nil {
				c.logger.Error(err,
					logger.Field{Key: "action", Value: "dead_letter"},
					logger.Field{Key: "message_id", Value: m.ID},
				)
				continue
			}
			continue
		}
		messages = append(messages, toStreamMessage(m, count))
	}

	return messages, nil
}

// Ack marks an entry processed for the group. Re-acking an already acked
// entry has no effect.
func (c *Consumer) Ack(ctx context.Context, id string) error {
	_, err := c.client.XAck(ctx, c.config.Stream, c.config.Group, id)
	return err
}

// deadLetter copies the entry to the dead-letter stream and acks it so it
// stops blocking the group.
func (c *Consumer) deadLetter(ctx context.Context, m redis.XMessage, deliveries int64) error {
	// An entry without a data field must still dead-letter, or it is
	// re-claimed forever.
	data, ok := m.Values[dataField].(string)
	if !ok {
		data = ""
	}

	_, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.DeadLetterStream(),
		Values: map[string]interface{}{
			dataField:    data,
			"message_id": m.ID,
			"deliveries": deliveries,
			"reason":     "max deliveries exceeded",
		},
	})
	if err != nil {
		return err
	}

	if err := c.Ack(ctx, m.ID); err != nil {
		return err
	}

	c.logger.Warn("routed message to dead-letter stream",
		logger.Field{Key: "message_id", Value: m.ID},
		logger.Field{Key: "deliveries", Value: deliveries},
		logger.Field{Key: "stream", Value: c.DeadLetterStream()},
	)

	return nil
}

func toStreamMessage(m redis.XMessage, deliveries int64) domain.StreamMessage {
	msg := domain.StreamMessage{
		ID:         m.ID,
		Deliveries: deliveries,
	}
	if data, ok := m.Values[dataField].(string); ok {
		msg.Data = []byte(data)
	}
	return msg
}
