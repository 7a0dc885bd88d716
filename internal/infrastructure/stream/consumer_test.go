package stream

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream"
	redisstream_mock "github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream/mock"
)

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Stream:       "orders-stream",
		Group:        "fillers",
		Consumer:     "worker-1",
		BatchSize:    10,
		BlockTimeout: 10 * time.Millisecond,
		// zero keeps reclaim independent of wall-clock idle time
		ClaimMinIdle:  0,
		MaxDeliveries: 3,
	}
}

func newStreamConsumer(t *testing.T) (redisstream.Client, *Consumer) {
	t.Helper()
	_, rdb := newTestRedis(t)
	client := redisstream.NewClientFromRedis(rdb)
	consumer := NewConsumer(client, logger.NewNop(), testConsumerConfig())
	return client, consumer
}

func TestConsumer_ReadRoundTrip(t *testing.T) {
	client, consumer := newStreamConsumer(t)
	publisher := NewPublisher(client, "orders-stream")
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))

	id, err := publisher.PublishOrderSubmitted(ctx, domain.OrderSubmittedEvent{
		OrderID: 1, Symbol: "AAPL", Side: domain.SideBuy, Qty: 10, Price: 190,
	})
	require.NoError(t, err)

	messages, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, id, messages[0].ID)
	assert.Contains(t, string(messages[0].Data), `"order_id":1`)

	// Entries already delivered to this consumer are not re-read.
	messages, err = consumer.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestConsumer_EnsureGroupIdempotent(t *testing.T) {
	_, consumer := newStreamConsumer(t)
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx))
}

func TestConsumer_AckRemovesFromPending(t *testing.T) {
	client, consumer := newStreamConsumer(t)
	publisher := NewPublisher(client, "orders-stream")
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))

	id, err := publisher.PublishOrderSubmitted(ctx, domain.OrderSubmittedEvent{
		OrderID: 1, Symbol: "AAPL", Side: domain.SideBuy, Qty: 10, Price: 190,
	})
	require.NoError(t, err)

	messages, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	require.NoError(t, consumer.Ack(ctx, id))
	// Re-acking is a no-op.
	require.NoError(t, consumer.Ack(ctx, id))

	reclaimed, err := consumer.ReclaimPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, reclaimed)
}

func TestConsumer_ReclaimPendingReturnsUnacked(t *testing.T) {
	client, consumer := newStreamConsumer(t)
	publisher := NewPublisher(client, "orders-stream")
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))

	id, err := publisher.PublishOrderSubmitted(ctx, domain.OrderSubmittedEvent{
		OrderID: 7, Symbol: "MSFT", Side: domain.SideSell, Qty: 3, Price: 420,
	})
	require.NoError(t, err)

	// Read without acking: the entry stays pending for the group.
	messages, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	reclaimed, err := consumer.ReclaimPending(ctx)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, id, reclaimed[0].ID)
	assert.Contains(t, string(reclaimed[0].Data), `"order_id":7`)
	assert.GreaterOrEqual(t, reclaimed[0].Deliveries, int64(1))
}

func TestConsumer_ReclaimPendingDeadLettersPastCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := redisstream_mock.NewMockClient(ctrl)
	consumer := NewConsumer(client, logger.NewNop(), testConsumerConfig())
	ctx := context.Background()

	client.EXPECT().
		XPendingExt(gomock.Any(), gomock.Any()).
		Return([]redis.XPendingExt{
			{ID: "1-0", Consumer: "worker-2", RetryCount: 5},
			{ID: "1-1", Consumer: "worker-2", RetryCount: 2},
		}, nil)

	client.EXPECT().
		XClaim(gomock.Any(), gomock.Any()).
		Return([]redis.XMessage{
			{ID: "1-0", Values: map[string]interface{}{"data": `{"order_id":1}`}},
			{ID: "1-1", Values: map[string]interface{}{"data": `{"order_id":2}`}},
		}, nil)

	// The entry past the cap is copied to the dead-letter stream and acked.
	client.EXPECT().
		XAdd(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args *redis.XAddArgs) (string, error) {
			assert.Equal(t, "orders-stream:dlq", args.Stream)
			assert.Equal(t, `{"order_id":1}`, args.Values.(map[string]interface{})["data"])
			assert.Equal(t, "1-0", args.Values.(map[string]interface{})["message_id"])
			return "1-0", nil
		})
	client.EXPECT().
		XAck(gomock.Any(), "orders-stream", "fillers", "1-0").
		Return(int64(1), nil)

	messages, err := consumer.ReclaimPending(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "1-1", messages[0].ID)
	assert.Equal(t, int64(2), messages[0].Deliveries)
}

// An entry without a data field must still dead-letter once past the cap; a
// nil value would fail the XAdd and the entry would be re-claimed forever.
func TestConsumer_DeadLettersEntryWithoutDataField(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := redisstream_mock.NewMockClient(ctrl)
	consumer := NewConsumer(client, logger.NewNop(), testConsumerConfig())
	ctx := context.Background()

	client.EXPECT().
		XPendingExt(gomock.Any(), gomock.Any()).
		Return([]redis.XPendingExt{
			{ID: "2-0", Consumer: "worker-2", RetryCount: 5},
		}, nil)

	client.EXPECT().
		XClaim(gomock.Any(), gomock.Any()).
		Return([]redis.XMessage{
			{ID: "2-0", Values: map[string]interface{}{}},
		}, nil)

	client.EXPECT().
		XAdd(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args *redis.XAddArgs) (string, error) {
			assert.Equal(t, "orders-stream:dlq", args.Stream)
			assert.Equal(t, "", args.Values.(map[string]interface{})["data"])
			assert.Equal(t, "2-0", args.Values.(map[string]interface{})["message_id"])
			return "2-0", nil
		})
	client.EXPECT().
		XAck(gomock.Any(), "orders-stream", "fillers", "2-0").
		Return(int64(1), nil)

	messages, err := consumer.ReclaimPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestConsumer_ReadEmptyOnTimeout(t *testing.T) {
	_, consumer := newStreamConsumer(t)
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))

	messages, err := consumer.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
