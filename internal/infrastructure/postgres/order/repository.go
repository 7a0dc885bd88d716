package order

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/ledger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/postgresql"
)

const (
	queryInsertOrder = `INSERT INTO orders (symbol, side, qty, price, status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, symbol, side, qty, price, status, ts`

	queryGetOrder = `SELECT id, symbol, side, qty, price, status, ts
			  FROM orders WHERE id = $1`

	queryListOrders = `SELECT id, symbol, side, qty, price, status, ts
			  FROM orders ORDER BY id`

	queryListPositions = `SELECT symbol, qty, avg_price
			  FROM positions ORDER BY symbol`

	queryLockOrder = `SELECT symbol, side, status FROM orders WHERE id = $1 FOR UPDATE`

	queryInsertFill = `INSERT INTO fills (order_id, price, qty) VALUES ($1, $2, $3)`

	queryMarkFilled = `UPDATE orders SET status = $2 WHERE id = $1`

	// Serializes fills per symbol. FOR UPDATE on the position row is not
	// enough on its own: when no row exists yet it locks nothing, and two
	// concurrent first fills would each write an absolute position, the
	// later one overwriting the earlier. The advisory lock is held until
	// the transaction ends.
	queryLockSymbol = `SELECT pg_advisory_xact_lock(hashtext($1))`

	queryLockPosition = `SELECT qty, avg_price FROM positions WHERE symbol = $1 FOR UPDATE`

	queryUpsertPosition = `INSERT INTO positions (symbol, qty, avg_price) VALUES ($1, $2, $3)
			  ON CONFLICT (symbol) DO UPDATE SET qty = EXCLUDED.qty, avg_price = EXCLUDED.avg_price`
)

// Repository is the transactional store for orders, fills and positions.
type Repository struct {
	client postgresql.PostgreSQLClient
}

// NewRepository creates a new order repository.
func NewRepository(client postgresql.PostgreSQLClient) *Repository {
	return &Repository{
		client: client,
	}
}

// CreateOrder inserts a new order with status NEW and returns the persisted
// record with its server-assigned id and timestamp.
func (r *Repository) CreateOrder(ctx context.Context, req domain.NewOrderRequest) (*domain.Order, error) {
	order := &domain.Order{}
	err := r.client.QueryRow(ctx, queryInsertOrder,
		req.Symbol, req.Side, req.Qty, req.Price, domain.StatusNew).
		Scan(&order.ID, &order.Symbol, &order.Side, &order.Qty, &order.Price, &order.Status, &order.Ts)
	if err != nil {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("failed to insert order: %v", err),
			string(errors.PersistenceError), "orders")
	}

	return order, nil
}

// GetOrder returns the order with the given id.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}
	err := r.client.QueryRow(ctx, queryGetOrder, id).
		Scan(&order.ID, &order.Symbol, &order.Side, &order.Qty, &order.Price, &order.Status, &order.Ts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NewErrorDetails("order not found", string(errors.OrderNotFoundError), "id")
		}
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("failed to get order: %v", err),
			string(errors.PersistenceError), "orders")
	}

	return order, nil
}

// ListOrders returns all orders ordered by id ascending.
func (r *Repository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.client.Query(ctx, queryListOrders)
	if err != nil {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("failed to query orders: %v", err),
			string(errors.PersistenceError), "orders")
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(&order.ID, &order.Symbol, &order.Side, &order.Qty, &order.Price, &order.Status, &order.Ts); err != nil {
			return nil, errors.NewErrorDetails(
				fmt.Sprintf("failed to scan order: %v", err),
				string(errors.PersistenceError), "orders")
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("error iterating orders: %v", err),
			string(errors.PersistenceError), "orders")
	}

	return orders, nil
}

// ListPositions returns all positions ordered by symbol ascending.
func (r *Repository) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	rows, err := r.client.Query(ctx, queryListPositions)
	if err != nil {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("failed to query positions: %v", err),
			string(errors.PersistenceError), "positions")
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		position := &domain.Position{}
		if err := rows.Scan(&position.Symbol, &position.Qty, &position.AvgPrice); err != nil {
			return nil, errors.NewErrorDetails(
				fmt.Sprintf("failed to scan position: %v", err),
				string(errors.PersistenceError), "positions")
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("error iterating positions: %v", err),
			string(errors.PersistenceError), "positions")
	}

	return positions, nil
}

// ApplyFill applies an executed fill to an order within one transaction:
// insert the fill row, mark the order FILLED and fold the fill into the
// symbol's position. Either every step commits or none do.
//
// The order row is locked first; if it is already FILLED the transaction
// makes no changes and an order_already_filled_error is returned, which makes
// redelivered fill events safe to re-process.
func (r *Repository) ApplyFill(ctx context.Context, orderID int64, price, qty float64) error {
	return postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
		var (
			symbol string
			side   domain.Side
			status domain.OrderStatus
		)
		err := r.client.QueryRow(txCtx, queryLockOrder, orderID).Scan(&symbol, &side, &status)
		if err != nil {
			if err == pgx.ErrNoRows {
				return errors.NewErrorDetails("order does not exist", string(errors.OrderNotFoundError), "order_id")
			}
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to lock order: %v", err),
				string(errors.PersistenceError), "orders")
		}

		if status == domain.StatusFilled {
			return errors.NewErrorDetails("order already filled", string(errors.OrderAlreadyFilledError), "order_id")
		}

		if _, err := r.client.Exec(txCtx, queryInsertFill, orderID, price, qty); err != nil {
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to insert fill: %v", err),
				string(errors.PersistenceError), "fills")
		}

		if _, err := r.client.Exec(txCtx, queryMarkFilled, orderID, domain.StatusFilled); err != nil {
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to mark order filled: %v", err),
				string(errors.PersistenceError), "orders")
		}

		if _, err := r.client.Exec(txCtx, queryLockSymbol, symbol); err != nil {
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to lock symbol: %v", err),
				string(errors.PersistenceError), "positions")
		}

		var existing *domain.Position
		position := domain.Position{Symbol: symbol}
		err = r.client.QueryRow(txCtx, queryLockPosition, symbol).Scan(&position.Qty, &position.AvgPrice)
		switch err {
		case nil:
			existing = &position
		case pgx.ErrNoRows:
			// First fill for this symbol.
		default:
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to lock position: %v", err),
				string(errors.PersistenceError), "positions")
		}

		next := ledger.Apply(existing, symbol, side, qty, price)
		if _, err := r.client.Exec(txCtx, queryUpsertPosition, next.Symbol, next.Qty, next.AvgPrice); err != nil {
			return errors.NewErrorDetails(
				fmt.Sprintf("failed to upsert position: %v", err),
				string(errors.PersistenceError), "positions")
		}

		return nil
	})
}
