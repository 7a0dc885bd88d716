// Package ingest accepts new orders, persists them and hands them to the
// fill pipeline through the orders stream.
package ingest

import (
	"context"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/metrics"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
)

// Usecase validates, persists and publishes new orders.
type Usecase struct {
	repository domain.OrderRepository
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     logger.Interface
}

var _ domain.Usecase = (*Usecase)(nil)

// NewUsecase creates the ingest usecase.
func NewUsecase(repository domain.OrderRepository, publisher domain.EventPublisher, m *metrics.Metrics, log logger.Interface) *Usecase {
	return &Usecase{
		repository: repository,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
	}
}

// PlaceOrder persists the order with status NEW, publishes the
// order-submitted event and returns the persisted record.
func (u *Usecase) PlaceOrder(ctx context.Context, req domain.NewOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order, err := u.repository.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	messageID, err := u.publisher.PublishOrderSubmitted(ctx, domain.EventFromOrder(order))
	if err != nil {
		// The order row exists but will never fill; surface the
		// transport failure to the caller.
		u.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "publish_order_submitted"},
			logger.Field{Key: "order_id", Value: order.ID},
		)
		return nil, err
	}

	u.metrics.OrdersCreated.Inc()

	u.logger.InfoContext(ctx, "order accepted",
		logger.Field{Key: "order_id", Value: order.ID},
		logger.Field{Key: "symbol", Value: order.Symbol},
		logger.Field{Key: "side", Value: order.Side},
		logger.Field{Key: "message_id", Value: messageID},
	)

	return order, nil
}

// GetOrder returns the order with the given id.
func (u *Usecase) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return u.repository.GetOrder(ctx, id)
}

// ListOrders returns all orders by id ascending.
func (u *Usecase) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return u.repository.ListOrders(ctx)
}

// ListPositions returns all positions by symbol ascending.
func (u *Usecase) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	return u.repository.ListPositions(ctx)
}
