package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTick_StaysWithinBand(t *testing.T) {
	feed := NewRandomWalkFeed(map[string]float64{"AAPL": 190})

	previous := 190.0
	for i := 0; i < 1000; i++ {
		price := feed.Tick("AAPL")
		assert.GreaterOrEqual(t, price, previous*(1-tickBand))
		assert.LessOrEqual(t, price, previous*(1+tickBand))
		previous = price
	}
}

func TestTick_UnknownSymbolStartsAtDefault(t *testing.T) {
	feed := NewRandomWalkFeed(map[string]float64{})

	price := feed.Tick("ZZZZ")
	assert.InDelta(t, 100, price, 100*tickBand)
}

func TestTick_NeverReachesZero(t *testing.T) {
	feed := NewRandomWalkFeed(map[string]float64{"PENNY": minPrice})

	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, feed.Tick("PENNY"), minPrice)
	}
}

func TestSymbols_DefaultSeed(t *testing.T) {
	feed := NewRandomWalkFeed(nil)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, feed.Symbols())
}

func TestTick_ConcurrentUse(t *testing.T) {
	feed := NewRandomWalkFeed(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Positive(t, feed.Tick("AAPL"))
			}
		}()
	}
	wg.Wait()
}
