// Package pricing provides the random-walk price feed used by the load
// harness to vary submitted prices.
package pricing

import (
	"math/rand"
	"sort"
	"sync"
)

// tickBand is the symmetric percentage band of one random-walk step.
const tickBand = 0.002

// minPrice floors a walked price so it never reaches zero.
const minPrice = 0.01

// RandomWalkFeed holds a current price per symbol and ticks it by a small
// random percentage on demand. Safe for concurrent use.
type RandomWalkFeed struct {
	mu     sync.Mutex
	prices map[string]float64
}

// NewRandomWalkFeed creates a feed seeded with the given start prices. A nil
// map seeds the default symbols.
func NewRandomWalkFeed(startPrices map[string]float64) *RandomWalkFeed {
	if startPrices == nil {
		startPrices = map[string]float64{
			"AAPL": 190.0,
			"MSFT": 420.0,
			"GOOG": 130.0,
		}
	}

	prices := make(map[string]float64, len(startPrices))
	for symbol, price := range startPrices {
		prices[symbol] = price
	}

	return &RandomWalkFeed{prices: prices}
}

// Tick moves the symbol's price by a uniform step within the band and
// returns the new price. Unknown symbols start at 100.
func (f *RandomWalkFeed) Tick(symbol string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.prices[symbol]
	if !ok {
		current = 100.0
	}

	current *= 1 + (rand.Float64()*2-1)*tickBand
	if current < minPrice {
		current = minPrice
	}
	f.prices[symbol] = current

	return current
}

// Symbols returns the symbols the feed is tracking, sorted.
func (f *RandomWalkFeed) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	symbols := make([]string, 0, len(f.prices))
	for symbol := range f.prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return symbols
}
