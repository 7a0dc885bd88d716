// Package fillworker consumes order-submitted events and applies simulated
// fills against the store.
package fillworker

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/metrics"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
)

// DefaultSlippageBand is the symmetric band of the price perturbation
// applied to a fill, as a fraction of the quoted price.
const DefaultSlippageBand = 0.001

// Config controls the worker loop.
type Config struct {
	// SlippageBand is the symmetric slippage fraction, e.g. 0.001 for ±0.1%.
	SlippageBand float64
	// PendingInterval is how often the worker reclaims stale pending
	// entries from crashed consumers.
	PendingInterval time.Duration
}

// Worker is a consumer-group member that turns order-submitted events into
// applied fills. Processing is safe to repeat: the store refuses to re-apply
// a fill to an already filled order.
type Worker struct {
	consumer   domain.EventConsumer
	repository domain.OrderRepository
	metrics    *metrics.Metrics
	logger     logger.Interface
	config     Config
}

// NewWorker creates a fill worker.
func NewWorker(consumer domain.EventConsumer, repository domain.OrderRepository, m *metrics.Metrics, log logger.Interface, config Config) *Worker {
	if config.SlippageBand <= 0 {
		config.SlippageBand = DefaultSlippageBand
	}
	if config.PendingInterval <= 0 {
		config.PendingInterval = 30 * time.Second
	}

	return &Worker{
		consumer:   consumer,
		repository: repository,
		metrics:    m,
		logger:     log,
		config:     config,
	}
}

// Run consumes until ctx is cancelled. In-flight messages finish processing
// before it returns; an unprocessed read failure only skips the cycle.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.consumer.EnsureGroup(ctx); err != nil {
		return err
	}

	w.logger.Info("fill worker started")

	pendingTicker := time.NewTicker(w.config.PendingInterval)
	defer pendingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("fill worker stopped")
			return nil
		case <-pendingTicker.C:
			messages, err := w.consumer.ReclaimPending(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.logger.Error(err, logger.Field{Key: "action", Value: "reclaim_pending"})
				continue
			}
			w.handleBatch(ctx, messages)
		default:
		}

		messages, err := w.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			// Transport failure: no work this cycle, retry on the next read.
			w.logger.Error(err, logger.Field{Key: "action", Value: "read_stream"})
			continue
		}

		w.handleBatch(ctx, messages)
	}
}

func (w *Worker) handleBatch(ctx context.Context, messages []domain.StreamMessage) {
	for _, msg := range messages {
		w.handleMessage(ctx, msg)
	}
}

// handleMessage ends in one of two states: acked (processed, duplicate or
// poison) or left pending for redelivery (persistence failure).
func (w *Worker) handleMessage(ctx context.Context, msg domain.StreamMessage) {
	event, err := decodeEvent(msg.Data)
	if err != nil {
		// Poison: retrying cannot succeed, drop it so it never blocks
		// the group.
		w.metrics.PoisonMessages.Inc()
		w.logger.Error(err,
			logger.Field{Key: "action", Value: "decode_event"},
			logger.Field{Key: "message_id", Value: msg.ID},
		)
		w.ack(ctx, msg.ID)
		return
	}

	price := w.slip(event.Price)

	err = w.repository.ApplyFill(ctx, event.OrderID, price, event.Qty)
	switch {
	case err == nil:
		w.metrics.OrdersFilled.Inc()
		w.logger.Info("fill applied",
			logger.Field{Key: "order_id", Value: event.OrderID},
			logger.Field{Key: "symbol", Value: event.Symbol},
			logger.Field{Key: "price", Value: price},
			logger.Field{Key: "qty", Value: event.Qty},
		)
		w.ack(ctx, msg.ID)

	case errors.ErrorCodeEquals(err, errors.OrderAlreadyFilledError):
		// Redelivery of a fill that committed before its ack was lost.
		w.logger.Warn("duplicate fill event acknowledged",
			logger.Field{Key: "order_id", Value: event.OrderID},
			logger.Field{Key: "message_id", Value: msg.ID},
		)
		w.ack(ctx, msg.ID)

	default:
		// Leave pending; the entry is redelivered on a later read.
		w.logger.Error(err,
			logger.Field{Key: "action", Value: "apply_fill"},
			logger.Field{Key: "order_id", Value: event.OrderID},
			logger.Field{Key: "message_id", Value: msg.ID},
			logger.Field{Key: "deliveries", Value: msg.Deliveries},
		)
	}
}

// slip perturbs the quoted price by a uniform fraction within the band.
func (w *Worker) slip(price float64) float64 {
	return price * (1 + (rand.Float64()*2-1)*w.config.SlippageBand)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.consumer.Ack(ctx, id); err != nil {
		w.logger.Error(err,
			logger.Field{Key: "action", Value: "ack"},
			logger.Field{Key: "message_id", Value: id},
		)
	}
}

func decodeEvent(data []byte) (domain.OrderSubmittedEvent, error) {
	var event domain.OrderSubmittedEvent
	if len(data) == 0 {
		return event, errors.NewErrorDetails("event payload is empty", string(errors.PoisonMessageError), "data")
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, errors.NewErrorDetails("event payload is not valid JSON", string(errors.PoisonMessageError), "data")
	}
	if err := event.Validate(); err != nil {
		return event, err
	}
	return event, nil
}
