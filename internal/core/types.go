package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents a single closed candlestick. Only the closing price and
// its timestamp matter to the moving-average strategy.
type Candle struct {
	Symbol    string
	Interval  string // "1m", "1h", "1d"
	Close     float64
	CloseTime time.Time
}

// Signal represents a trading signal action
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Side represents the direction of an order or operation
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// LotConstraints holds the exchange trading rules for a symbol, normalized
// from the LOT_SIZE and MIN_NOTIONAL filters. Immutable once fetched.
type LotConstraints struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	MinQty      decimal.Decimal
	MaxQty      decimal.Decimal
	StepSize    decimal.Decimal
	MinNotional decimal.Decimal // zero when the exchange reports no notional filter
}

// IsValid checks that the LOT_SIZE triplet is usable for sizing decisions.
func (l LotConstraints) IsValid() bool {
	return l.Symbol != "" && l.StepSize.IsPositive() && l.MinQty.IsPositive() && l.MaxQty.IsPositive()
}

// SessionStatus represents the lifecycle status of a trading session
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionStopped SessionStatus = "STOPPED"
)

// Session represents one persisted trading session for a single symbol.
// A session transitions ACTIVE -> STOPPED exactly once.
type Session struct {
	ID            string
	Symbol        string
	StartTime     time.Time
	EndTime       *time.Time // nil while the session is active
	Status        SessionStatus
	InvestedValue float64
	InvestedQty   float64
}

// IsActive returns true while the session has not been stopped.
func (s Session) IsActive() bool {
	return s.Status == SessionActive
}

// Operation is one executed BUY or SELL, append-only and immutable once
// recorded. It always references an existing session.
type Operation struct {
	ID         string
	SessionID  string
	Type       Side
	Symbol     string
	Time       time.Time
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	TotalValue decimal.Decimal
}

// NewOperation builds an Operation with TotalValue derived from price and
// quantity.
func NewOperation(sessionID string, typ Side, symbol string, ts time.Time, price, qty decimal.Decimal) Operation {
	return Operation{
		SessionID:  sessionID,
		Type:       typ,
		Symbol:     symbol,
		Time:       ts,
		Price:      price,
		Quantity:   qty,
		TotalValue: price.Mul(qty),
	}
}
