package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmarques/cryptobot/internal/backtest"
	"github.com/rmarques/cryptobot/internal/exchange/binance"
	"github.com/rmarques/cryptobot/internal/indicator"
	"github.com/rmarques/cryptobot/internal/logger"
	"github.com/rmarques/cryptobot/internal/metrics"
	"github.com/rmarques/cryptobot/internal/strategy/ma_crossover"
)

var (
	backtestSymbol   string
	backtestInterval string
	backtestLimit    int
	backtestCapital  float64
	backtestFast     int
	backtestSlow     int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the crossover strategy",
	Long:  "Fetch recent candles for a symbol and simulate the strategy against them, then print performance statistics. Uses public market data only; no credentials required.",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "1h", "Candle interval")
	backtestCmd.Flags().IntVar(&backtestLimit, "limit", 1000, "Number of recent candles to replay")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 10000, "Initial simulated capital")
	backtestCmd.Flags().IntVar(&backtestFast, "fast", ma_crossover.DefaultFastPeriod, "Fast moving-average period")
	backtestCmd.Flags().IntVar(&backtestSlow, "slow", ma_crossover.DefaultSlowPeriod, "Slow moving-average period")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	gen, err := ma_crossover.New(backtestFast, backtestSlow)
	if err != nil {
		return fmt.Errorf("creating strategy: %w", err)
	}

	exch := binance.New("", "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	candles, err := exch.GetRecentCandles(ctx, backtestSymbol, backtestInterval, backtestLimit)
	if err != nil {
		return fmt.Errorf("fetching candles: %w", err)
	}

	reg := metrics.NewRegistry()
	started := time.Now()
	res, err := backtest.New(log).Run(candles, gen, backtestCapital)
	if err != nil {
		reg.RecordBacktest("error", time.Since(started).Seconds())
		return fmt.Errorf("backtest failed: %w", err)
	}
	reg.RecordBacktest("ok", time.Since(started).Seconds())

	m := res.Metrics
	final := res.EquityCurve[len(res.EquityCurve)-1]

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	fastMA := indicator.SMA(closes, backtestFast)
	slowMA := indicator.SMA(closes, backtestSlow)

	fmt.Println("=== cryptobot backtest ===")
	fmt.Printf("Symbol:        %s\n", backtestSymbol)
	fmt.Printf("Strategy:      %s\n", gen.Name())
	fmt.Printf("Candles:       %d (%s)\n", len(candles), backtestInterval)
	fmt.Printf("Period:        %s to %s\n",
		candles[0].CloseTime.Format("2006-01-02 15:04"),
		candles[len(candles)-1].CloseTime.Format("2006-01-02 15:04"))
	if len(fastMA) > 0 && len(slowMA) > 0 {
		fmt.Printf("Latest MAs:    fast %.2f / slow %.2f\n",
			fastMA[len(fastMA)-1], slowMA[len(slowMA)-1])
	}
	fmt.Println()
	fmt.Printf("Initial capital: %.2f\n", backtestCapital)
	fmt.Printf("Final equity:    %.2f\n", final.Equity)
	fmt.Printf("Total trades:    %d (%d won / %d lost)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("Win rate:        %.2f%%\n", m.WinRate*100)
	fmt.Printf("Total profit:    %.2f\n", m.TotalProfit)
	fmt.Printf("Max drawdown:    %.2f\n", m.MaxDrawdown)
	fmt.Printf("Sharpe ratio:    %.2f\n", m.SharpeRatio)
	if math.IsInf(m.ProfitFactor, 1) {
		fmt.Println("Profit factor:   inf (no losing trades)")
	} else {
		fmt.Printf("Profit factor:   %.2f\n", m.ProfitFactor)
	}
	return nil
}
