package ledger

import (
	"testing"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	testCases := []struct {
		name     string
		existing *domain.Position
		side     domain.Side
		qty      float64
		price    float64
		want     domain.Position
	}{
		{
			name:     "open long from flat",
			existing: nil,
			side:     domain.SideBuy,
			qty:      10,
			price:    100,
			want:     domain.Position{Symbol: "FOO", Qty: 10, AvgPrice: 100},
		},
		{
			name:     "open short from flat",
			existing: nil,
			side:     domain.SideSell,
			qty:      5,
			price:    50,
			want:     domain.Position{Symbol: "FOO", Qty: -5, AvgPrice: 50},
		},
		{
			name:     "same direction growth uses weighted average",
			existing: &domain.Position{Symbol: "FOO", Qty: 10, AvgPrice: 100},
			side:     domain.SideBuy,
			qty:      10,
			price:    110,
			want:     domain.Position{Symbol: "FOO", Qty: 20, AvgPrice: 105},
		},
		{
			name:     "short growth uses weighted average",
			existing: &domain.Position{Symbol: "FOO", Qty: -10, AvgPrice: 100},
			side:     domain.SideSell,
			qty:      10,
			price:    110,
			want:     domain.Position{Symbol: "FOO", Qty: -20, AvgPrice: 105},
		},
		{
			name:     "flatten records last fill price",
			existing: &domain.Position{Symbol: "FOO", Qty: 10, AvgPrice: 100},
			side:     domain.SideSell,
			qty:      10,
			price:    120,
			want:     domain.Position{Symbol: "FOO", Qty: 0, AvgPrice: 120},
		},
		{
			name:     "reduction keeps basis",
			existing: &domain.Position{Symbol: "FOO", Qty: 20, AvgPrice: 105},
			side:     domain.SideSell,
			qty:      5,
			price:    999,
			want:     domain.Position{Symbol: "FOO", Qty: 15, AvgPrice: 105},
		},
		{
			name:     "reversal through zero keeps basis",
			existing: &domain.Position{Symbol: "FOO", Qty: 10, AvgPrice: 100},
			side:     domain.SideSell,
			qty:      25,
			price:    90,
			want:     domain.Position{Symbol: "FOO", Qty: -15, AvgPrice: 100},
		},
		{
			name:     "short reduction keeps basis",
			existing: &domain.Position{Symbol: "FOO", Qty: -20, AvgPrice: 80},
			side:     domain.SideBuy,
			qty:      5,
			price:    10,
			want:     domain.Position{Symbol: "FOO", Qty: -15, AvgPrice: 80},
		},
		{
			name:     "near zero residual counts as flat",
			existing: &domain.Position{Symbol: "FOO", Qty: 1, AvgPrice: 100},
			side:     domain.SideSell,
			qty:      1 + 1e-12,
			price:    101,
			want:     domain.Position{Symbol: "FOO", Qty: 0, AvgPrice: 101},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(tc.existing, "FOO", tc.side, tc.qty, tc.price)
			assert.Equal(t, tc.want.Symbol, got.Symbol)
			assert.InDelta(t, tc.want.Qty, got.Qty, 1e-9)
			assert.InDelta(t, tc.want.AvgPrice, got.AvgPrice, 1e-9)
		})
	}
}

func TestApplySequentialComposition(t *testing.T) {
	// A sequence of fills must yield the same position regardless of how
	// intermediate results are threaded back in.
	fills := []struct {
		side  domain.Side
		qty   float64
		price float64
	}{
		{domain.SideBuy, 10, 100},
		{domain.SideBuy, 10, 110},
		{domain.SideSell, 5, 999},
		{domain.SideSell, 15, 120},
		{domain.SideSell, 3, 95},
	}

	var pos *domain.Position
	for _, f := range fills {
		next := Apply(pos, "BAR", f.side, f.qty, f.price)
		pos = &next
	}

	assert.InDelta(t, -3, pos.Qty, 1e-9)
	// A flat position counts as same-direction, so the short opened after
	// the flatten carries the last fill price.
	assert.InDelta(t, 95, pos.AvgPrice, 1e-9)
}
