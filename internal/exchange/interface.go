// Package exchange defines the market-data and order-placement collaborator
// the trading core talks to. Implementations wrap one spot exchange.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmarques/cryptobot/internal/core"
)

// OrderConfirmation is the exchange's acknowledgement of a placed order.
type OrderConfirmation struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          core.Side
	Status        string
	ExecutedQty   decimal.Decimal
	// AvgFillPrice is the quantity-weighted fill price; zero when the
	// exchange reports no fill detail.
	AvgFillPrice decimal.Decimal
	TransactTime time.Time
}

// Exchange defines the spot-exchange operations the core requires.
//
// Failure taxonomy: data fetches fail with core.ErrDataUnavailable
// (retryable), unknown symbols with core.ErrSymbolNotFound (fatal for sizing
// until corrected), declined orders with core.ErrOrderRejected.
type Exchange interface {
	// Name returns the exchange identifier.
	Name() string

	// GetRecentCandles returns up to limit most recent closed candles for
	// symbol at the given interval, oldest first.
	GetRecentCandles(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error)

	// GetLotConstraints returns the normalized trading rules for symbol.
	GetLotConstraints(ctx context.Context, symbol string) (*core.LotConstraints, error)

	// GetCurrentPrice returns the latest traded price for symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetFreeBalance returns the free (unlocked) balance of asset.
	GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// PlaceMarketOrder submits an immediate market order.
	PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, quantity decimal.Decimal) (*OrderConfirmation, error)
}
