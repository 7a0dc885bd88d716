package v1

import (
	"time"

	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
)

// Side is the direction of an order.
type Side string

const (
	// SideBuy buys the symbol.
	SideBuy Side = "BUY"
	// SideSell sells the symbol.
	SideSell Side = "SELL"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderStatus is the lifecycle status of an order. The only transition the
// pipeline performs is NEW -> FILLED; REJECTED is reserved.
type OrderStatus string

const (
	// StatusNew marks an order accepted but not yet filled.
	StatusNew OrderStatus = "NEW"
	// StatusFilled marks an order whose fill has been applied.
	StatusFilled OrderStatus = "FILLED"
	// StatusRejected is reserved and never produced by the fill pipeline.
	StatusRejected OrderStatus = "REJECTED"
)

// MaxSymbolLength bounds the symbol attribute of an order.
const MaxSymbolLength = 16

// Order is a client order persisted by the store.
type Order struct {
	ID     int64       `json:"id"`
	Symbol string      `json:"symbol"`
	Side   Side        `json:"side"`
	Qty    float64     `json:"qty"`
	Price  float64     `json:"price"`
	Status OrderStatus `json:"status"`
	Ts     time.Time   `json:"ts"`
}

// Fill is an executed fill for an order. Append-only.
type Fill struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order_id"`
	Price   float64   `json:"price"`
	Qty     float64   `json:"qty"`
	Ts      time.Time `json:"ts"`
}

// Position is the per-symbol net position. Qty is signed: positive is net
// long, negative net short, zero flat. AvgPrice is meaningful only when
// Qty is non-zero.
type Position struct {
	Symbol   string  `json:"symbol"`
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// NewOrderRequest is the payload accepted by the ingest boundary.
type NewOrderRequest struct {
	Symbol string  `json:"symbol"`
	Side   Side    `json:"side"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
}

// Validate checks the request against the ingest contract.
func (r NewOrderRequest) Validate() error {
	if len(r.Symbol) == 0 || len(r.Symbol) > MaxSymbolLength {
		return errors.NewErrorDetails("symbol must be 1 to 16 characters", string(errors.OrderValidationError), "symbol")
	}
	if !r.Side.Valid() {
		return errors.NewErrorDetails("side must be BUY or SELL", string(errors.OrderValidationError), "side")
	}
	if r.Qty <= 0 {
		return errors.NewErrorDetails("qty must be greater than zero", string(errors.OrderValidationError), "qty")
	}
	if r.Price <= 0 {
		return errors.NewErrorDetails("price must be greater than zero", string(errors.OrderValidationError), "price")
	}
	return nil
}

// OrderSubmittedEvent is the wire shape published to the orders stream. It is
// a transport envelope correlating to exactly one order; the JSON encoding
// must round-trip byte-for-byte through the stream's data field.
type OrderSubmittedEvent struct {
	OrderID int64   `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Side    Side    `json:"side"`
	Qty     float64 `json:"qty"`
	Price   float64 `json:"price"`
}

// EventFromOrder builds the order-submitted event for a persisted order.
func EventFromOrder(order *Order) OrderSubmittedEvent {
	return OrderSubmittedEvent{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Price:   order.Price,
	}
}

// Validate checks the decoded event against the schema. A payload failing
// this check is a poison message.
func (e OrderSubmittedEvent) Validate() error {
	if e.OrderID <= 0 {
		return errors.NewErrorDetails("event order_id must be positive", string(errors.PoisonMessageError), "order_id")
	}
	if e.Symbol == "" {
		return errors.NewErrorDetails("event symbol is empty", string(errors.PoisonMessageError), "symbol")
	}
	if !e.Side.Valid() {
		return errors.NewErrorDetails("event side is invalid", string(errors.PoisonMessageError), "side")
	}
	if e.Qty <= 0 {
		return errors.NewErrorDetails("event qty must be positive", string(errors.PoisonMessageError), "qty")
	}
	if e.Price <= 0 {
		return errors.NewErrorDetails("event price must be positive", string(errors.PoisonMessageError), "price")
	}
	return nil
}

// StreamMessage is a raw entry delivered from the orders stream.
type StreamMessage struct {
	ID         string
	Data       []byte
	Deliveries int64
}
