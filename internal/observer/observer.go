// Package observer defines the event surface the trading core exposes to
// presentation layers. The core holds an Observer injected at construction
// and never references any display component directly. All callbacks are
// fire-and-forget: they must not block and have no failure the core can
// observe.
package observer

import (
	"github.com/rmarques/cryptobot/internal/core"
)

// Severity levels for OnLogMessage.
const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityError = "ERROR"
)

// Observer receives trading events.
type Observer interface {
	// OnLogMessage reports a human-readable message from the core.
	OnLogMessage(message, severity string)

	// OnPriceUpdate reports the latest observed close price for a symbol.
	OnPriceUpdate(symbol string, price float64)

	// OnOperation reports an executed BUY or SELL.
	OnOperation(op core.Operation)
}

// Nop is an Observer that discards every event. It is the default when no
// presentation layer is attached.
type Nop struct{}

func (Nop) OnLogMessage(message, severity string)      {}
func (Nop) OnPriceUpdate(symbol string, price float64) {}
func (Nop) OnOperation(op core.Operation)              {}
