// Package backtest replays historical candles through a signal generator
// against a simulated position. No real orders are placed and nothing is
// persisted; the run is single-threaded and deterministic.
package backtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/strategy"
)

// capitalFraction of the available simulated capital committed on each BUY.
const capitalFraction = 0.95

// Engine runs backtests. Safe to reuse across runs; each run carries its
// own state.
type Engine struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Run replays candles in order through gen. At each index the generator
// sees exactly the prefix up to that candle, so the signal can never use
// future data. Sizing uses a fixed fraction of the simulated capital with
// no exchange lot rules applied. Malformed input fails the run up front.
func (e *Engine) Run(candles []core.Candle, gen strategy.Generator, initialCapital float64) (*Result, error) {
	if len(candles) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("no candles to replay"))
	}
	if initialCapital <= 0 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("initial capital %v must be positive", initialCapital))
	}
	for i, c := range candles {
		if c.Close <= 0 {
			return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("candle %d has non-positive close %v", i, c.Close))
		}
	}

	e.log.Info("starting backtest",
		zap.String("strategy", gen.Name()),
		zap.Int("candles", len(candles)),
		zap.Float64("initial_capital", initialCapital),
	)

	res := &Result{
		EquityCurve: make([]EquityPoint, 0, len(candles)),
	}
	capital := initialCapital
	var positionSize, entryCost float64

	for i := range candles {
		gen.Update(candles[:i+1])
		price := candles[i].Close
		ts := candles[i].CloseTime

		switch gen.Signal() {
		case core.SignalBuy:
			if positionSize == 0 {
				size := capital * capitalFraction / price
				cost := size * price
				if cost <= capital {
					positionSize = size
					entryCost = cost
					capital -= cost
					res.Trades = append(res.Trades, Trade{
						Time:     ts,
						Type:     core.SideBuy,
						Price:    price,
						Quantity: size,
						Cost:     cost,
					})
				}
			}
		case core.SignalSell:
			if positionSize > 0 {
				revenue := positionSize * price
				res.Trades = append(res.Trades, Trade{
					Time:     ts,
					Type:     core.SideSell,
					Price:    price,
					Quantity: positionSize,
					Profit:   revenue - entryCost,
				})
				capital += revenue
				positionSize = 0
				entryCost = 0
			}
		}

		equity := capital
		if positionSize > 0 {
			equity += positionSize * price
		}
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Time: ts, Equity: equity})
	}

	res.calculateMetrics()

	e.log.Info("backtest finished",
		zap.Int("total_trades", res.Metrics.TotalTrades),
		zap.Float64("win_rate", res.Metrics.WinRate),
		zap.Float64("total_profit", res.Metrics.TotalProfit),
		zap.Float64("max_drawdown", res.Metrics.MaxDrawdown),
		zap.Float64("sharpe_ratio", res.Metrics.SharpeRatio),
		zap.Float64("profit_factor", res.Metrics.ProfitFactor),
	)
	return res, nil
}
