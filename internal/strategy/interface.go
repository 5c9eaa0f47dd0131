package strategy

import (
	"github.com/rmarques/cryptobot/internal/core"
)

// Generator defines the capability of a signal generator. Implementations
// are stateful: Update feeds them the visible candle window and Signal
// evaluates it. Further strategies are added as new implementations of this
// interface, never as conditional branches.
type Generator interface {
	// Name returns the strategy identifier.
	Name() string

	// WarmupPeriod returns the minimum number of candles the generator
	// needs before Signal is defined. Below it Signal returns HOLD.
	WarmupPeriod() int

	// Update replaces the generator's view of the price series.
	Update(candles []core.Candle)

	// Signal evaluates the current view and returns BUY, SELL or HOLD.
	Signal() core.Signal
}
