package v1

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=mock

// OrderRepository is the transactional store for orders, fills and positions.
type OrderRepository interface {
	CreateOrder(ctx context.Context, req NewOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	ListPositions(ctx context.Context) ([]*Position, error)

	// ApplyFill inserts a fill, marks the order FILLED and folds the fill
	// into the per-symbol position, all within one transaction. Applying a
	// fill to an already filled order makes no changes and returns an error
	// carrying the order_already_filled_error code.
	ApplyFill(ctx context.Context, orderID int64, price, qty float64) error
}

// EventPublisher publishes order-submitted events to the orders stream.
type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event OrderSubmittedEvent) (string, error)
}

// EventConsumer is a consumer-group member over the orders stream.
// Delivery is at least once: an entry read but not acked stays pending and is
// redelivered on a later Read or ReclaimPending.
type EventConsumer interface {
	// EnsureGroup creates the consumer group if it does not exist.
	EnsureGroup(ctx context.Context) error
	// Read returns new entries for this consumer, blocking up to the
	// configured timeout. A timeout yields an empty batch, not an error.
	Read(ctx context.Context) ([]StreamMessage, error)
	// ReclaimPending claims entries other consumers left pending past the
	// idle threshold. Entries past the delivery cap are routed to the
	// dead-letter stream instead of being returned.
	ReclaimPending(ctx context.Context) ([]StreamMessage, error)
	// Ack marks an entry processed. Re-acking is a no-op.
	Ack(ctx context.Context, id string) error
}

// Usecase is the order ingest surface consumed by the HTTP handlers.
type Usecase interface {
	PlaceOrder(ctx context.Context, req NewOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	ListPositions(ctx context.Context) ([]*Position, error)
}
