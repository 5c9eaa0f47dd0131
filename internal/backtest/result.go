package backtest

import (
	"math"
	"time"

	"github.com/rmarques/cryptobot/internal/core"
)

// Trade is one simulated order in a backtest. BUY entries carry Cost and a
// zero Profit; SELL entries carry the round-trip Profit and a zero Cost.
type Trade struct {
	Time     time.Time
	Type     core.Side
	Price    float64
	Quantity float64
	Cost     float64
	Profit   float64
}

// EquityPoint is the portfolio value at one candle close.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Metrics summarizes backtest performance. Trade counts refer to completed
// round-trips: an open position without a closing SELL is not a trade yet.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	MaxDrawdown   float64
	SharpeRatio   float64
	ProfitFactor  float64
}

// Result holds the full outcome of one backtest run. The equity curve is
// aligned one-to-one with the input candles. Immutable after the run.
type Result struct {
	Trades      []Trade
	EquityCurve []EquityPoint
	Metrics     Metrics
}

// riskFreeRate is the fixed annual rate used for excess returns in the
// Sharpe ratio.
const riskFreeRate = 0.01

// tradingDaysPerYear annualizes per-candle returns.
const tradingDaysPerYear = 252

func (r *Result) calculateMetrics() {
	var roundTrips, winning, losing int
	var totalProfit, grossProfit, grossLoss float64
	for _, t := range r.Trades {
		if t.Type != core.SideSell {
			continue
		}
		roundTrips++
		totalProfit += t.Profit
		switch {
		case t.Profit > 0:
			winning++
			grossProfit += t.Profit
		case t.Profit < 0:
			losing++
			grossLoss += -t.Profit
		}
	}

	m := Metrics{
		TotalTrades:   roundTrips,
		WinningTrades: winning,
		LosingTrades:  losing,
		TotalProfit:   totalProfit,
		MaxDrawdown:   maxDrawdown(r.EquityCurve),
		SharpeRatio:   sharpeRatio(r.EquityCurve),
	}
	if roundTrips > 0 {
		m.WinRate = float64(winning) / float64(roundTrips)
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
	r.Metrics = m
}

// maxDrawdown is the deepest fall below the running equity peak, in
// currency units.
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if dd := p.Equity - peak; dd < worst {
			worst = dd
		}
	}
	return math.Abs(worst)
}

// sharpeRatio annualizes the mean excess per-candle return over its sample
// standard deviation. Zero when fewer than two return observations exist or
// the returns have no variance.
func sharpeRatio(curve []EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	daily := riskFreeRate / tradingDaysPerYear

	excess := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			return 0
		}
		excess = append(excess, curve[i].Equity/prev-1-daily)
	}
	if len(excess) < 2 {
		return 0
	}

	var sum float64
	for _, r := range excess {
		sum += r
	}
	mean := sum / float64(len(excess))

	var sq float64
	for _, r := range excess {
		sq += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sq / float64(len(excess)-1))
	if std == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean / std
}
