// Package ma_crossover implements the moving-average crossover signal
// generator: BUY while the fast average sits above the slow one, SELL while
// it sits below, HOLD on a tie or while warming up.
package ma_crossover

import (
	"fmt"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/indicator"
)

// Default periods, matching the bot's historical 7/40 hourly configuration.
const (
	DefaultFastPeriod = 7
	DefaultSlowPeriod = 40
)

// Generator implements strategy.Generator with two simple moving averages.
// The averages are recomputed from the full visible window on every Signal
// call; update cadence is minutes, not ticks, so simplicity wins over an
// incremental computation.
type Generator struct {
	fastPeriod int
	slowPeriod int
	closes     []float64
}

// New creates a crossover generator. fast must be positive and strictly
// smaller than slow.
func New(fastPeriod, slowPeriod int) (*Generator, error) {
	if fastPeriod <= 0 || fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("ma_crossover: invalid periods fast=%d slow=%d", fastPeriod, slowPeriod)
	}
	return &Generator{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}, nil
}

func (g *Generator) Name() string {
	return fmt.Sprintf("ma_crossover_%d_%d", g.fastPeriod, g.slowPeriod)
}

func (g *Generator) WarmupPeriod() int {
	return g.slowPeriod
}

// Update replaces the visible price series with the closes of candles.
func (g *Generator) Update(candles []core.Candle) {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	g.closes = closes
}

// Signal compares the latest fast and slow averages. Ties return HOLD so a
// flat market cannot flap orders.
func (g *Generator) Signal() core.Signal {
	fast, slow, ok := g.Averages()
	if !ok {
		return core.SignalHold
	}

	switch {
	case fast > slow:
		return core.SignalBuy
	case fast < slow:
		return core.SignalSell
	default:
		return core.SignalHold
	}
}

// Averages returns the current fast and slow simple moving averages over the
// tail of the series. ok is false until WarmupPeriod candles are visible.
func (g *Generator) Averages() (fast, slow float64, ok bool) {
	fast, fastOK := indicator.TailMean(g.closes, g.fastPeriod)
	slow, slowOK := indicator.TailMean(g.closes, g.slowPeriod)
	return fast, slow, fastOK && slowOK
}
