// Package ledger implements the pure position accounting used by the fill
// pipeline. It has no I/O; the store calls Apply inside the fill transaction.
package ledger

import (
	"math"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
)

// FlatEpsilon is the tolerance under which a net quantity counts as flat.
const FlatEpsilon = 1e-9

// Apply folds a fill into an existing position and returns the new position.
// existing may be nil when the symbol has no position yet.
//
// The average price is a quantity-weighted average of same-direction entries
// since the position last crossed zero. A fill that shrinks or reverses a
// position leaves the recorded average unchanged; crossing flat records the
// last fill price as the basis.
func Apply(existing *domain.Position, symbol string, side domain.Side, qty, price float64) domain.Position {
	signedQty := qty
	if side == domain.SideSell {
		signedQty = -qty
	}

	if existing == nil {
		return domain.Position{Symbol: symbol, Qty: signedQty, AvgPrice: price}
	}

	newQty := existing.Qty + signedQty

	switch {
	case math.Abs(newQty) < FlatEpsilon:
		return domain.Position{Symbol: symbol, Qty: 0, AvgPrice: price}

	case sameDirection(existing.Qty, signedQty):
		newAvg := (existing.Qty*existing.AvgPrice + signedQty*price) / newQty
		return domain.Position{Symbol: symbol, Qty: newQty, AvgPrice: newAvg}

	default:
		// Shrinking or reversing keeps the recorded basis.
		return domain.Position{Symbol: symbol, Qty: newQty, AvgPrice: existing.AvgPrice}
	}
}

func sameDirection(a, b float64) bool {
	return (a >= 0 && b >= 0) || (a <= 0 && b <= 0)
}
