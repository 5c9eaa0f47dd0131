package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/exchange"
	"github.com/rmarques/cryptobot/internal/storage"
	"github.com/rmarques/cryptobot/internal/storage/archive"
)

// stubExchange serves canned candles and accepts every order. failFetches
// makes the first N candle fetches fail to exercise the cooldown path.
type stubExchange struct {
	mu          sync.Mutex
	candles     []core.Candle
	failFetches int
	fetches     int
	orders      []core.Side
}

func (s *stubExchange) Name() string { return "stub" }

func (s *stubExchange) GetRecentCandles(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetches <= s.failFetches {
		return nil, core.ErrDataUnavailable
	}
	return s.candles, nil
}

func (s *stubExchange) GetLotConstraints(ctx context.Context, symbol string) (*core.LotConstraints, error) {
	return &core.LotConstraints{
		Symbol:    symbol,
		BaseAsset: "BTC",
		MinQty:    decimal.RequireFromString("0.0001"),
		MaxQty:    decimal.RequireFromString("9000"),
		StepSize:  decimal.RequireFromString("0.0001"),
	}, nil
}

func (s *stubExchange) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.RequireFromString("100"), nil
}

func (s *stubExchange) GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.01"), nil
}

func (s *stubExchange) PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, quantity decimal.Decimal) (*exchange.OrderConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, side)
	return &exchange.OrderConfirmation{Symbol: symbol, Side: side, Status: "FILLED", ExecutedQty: quantity}, nil
}

func (s *stubExchange) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// fixedSignal always reports one signal once warm.
type fixedSignal struct {
	signal core.Signal
}

func (f *fixedSignal) Name() string                 { return "fixed" }
func (f *fixedSignal) WarmupPeriod() int            { return 1 }
func (f *fixedSignal) Update(candles []core.Candle) {}
func (f *fixedSignal) Signal() core.Signal          { return f.signal }

func risingCandles(n int) []core.Candle {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.Candle, n)
	for i := range out {
		out[i] = core.Candle{
			Symbol:    "BTCBRL",
			Interval:  "1h",
			Close:     100 + float64(i),
			CloseTime: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func fastConfig() Config {
	return Config{
		Symbol:        "BTCBRL",
		Interval:      "1h",
		CandleLimit:   100,
		PollInterval:  5 * time.Millisecond,
		SliceInterval: time.Millisecond,
		ErrorCooldown: time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestStartStop_Lifecycle(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10)}
	store := storage.NewMemoryStore()
	e := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalHold}, nil, nil, nil, nil)

	id, err := e.Start(context.Background(), 1000, 0.005)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !e.Active() {
		t.Fatal("engine should be active after Start")
	}

	sess, err := store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.Status != core.SessionActive {
		t.Errorf("expected ACTIVE session, got %s", sess.Status)
	}

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if e.Active() {
		t.Fatal("engine should be inactive after Stop")
	}

	sess, err = store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.Status != core.SessionStopped {
		t.Errorf("expected STOPPED session, got %s", sess.Status)
	}
	if sess.EndTime == nil {
		t.Error("expected end time set on stopped session")
	}
}

func TestStart_SecondStartFails(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10)}
	store := storage.NewMemoryStore()
	e := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalHold}, nil, nil, nil, nil)

	if _, err := e.Start(context.Background(), 1000, 0.005); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer e.Stop(context.Background())

	if _, err := e.Start(context.Background(), 1000, 0.005); !errors.Is(err, core.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	// The store guard also blocks a second engine on the same symbol.
	e2 := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalHold}, nil, nil, nil, nil)
	if _, err := e2.Start(context.Background(), 1000, 0.005); !errors.Is(err, core.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive from second engine, got %v", err)
	}
}

func TestStop_Idempotent(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10)}
	e := New(fastConfig(), exch, storage.NewMemoryStore(), &fixedSignal{signal: core.SignalHold}, nil, nil, nil, nil)

	if err := e.Stop(context.Background()); !errors.Is(err, core.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive before start, got %v", err)
	}

	if _, err := e.Start(context.Background(), 1000, 0.005); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}
	if err := e.Stop(context.Background()); !errors.Is(err, core.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive on second Stop, got %v", err)
	}
}

func TestLoop_OpensOnBuySignal(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10)}
	store := storage.NewMemoryStore()
	e := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalBuy}, nil, nil, nil, nil)

	id, err := e.Start(context.Background(), 1000, 0.005)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return exch.orderCount() >= 1 })
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// A constant BUY signal must open exactly once; the manager absorbs
	// the duplicates.
	if got := exch.orderCount(); got != 1 {
		t.Errorf("expected exactly 1 order, got %d", got)
	}
	ops, err := store.ListOperations(context.Background(), id)
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(ops) != 1 || ops[0].Type != core.SideBuy {
		t.Fatalf("expected one BUY operation, got %v", ops)
	}
}

func TestLoop_SurvivesFetchFailures(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10), failFetches: 3}
	store := storage.NewMemoryStore()
	e := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalBuy}, nil, nil, nil, nil)

	if _, err := e.Start(context.Background(), 1000, 0.005); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// The order arrives only after the failing fetches are retried past.
	waitFor(t, func() bool { return exch.orderCount() >= 1 })
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestStop_ArchivesSession(t *testing.T) {
	exch := &stubExchange{candles: risingCandles(10)}
	store := storage.NewMemoryStore()
	fs, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS failed: %v", err)
	}
	arch := archive.NewArchiver(fs)
	e := New(fastConfig(), exch, store, &fixedSignal{signal: core.SignalBuy}, nil, nil, nil, arch)

	id, err := e.Start(context.Background(), 1000, 0.005)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return exch.orderCount() >= 1 })
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	paths, err := arch.ListSymbol(context.Background(), "BTCBRL")
	if err != nil {
		t.Fatalf("ListSymbol failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 archived session, got %d", len(paths))
	}
	rec, err := arch.Load(context.Background(), paths[0])
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Session.ID != id {
		t.Errorf("expected archived session %s, got %s", id, rec.Session.ID)
	}
	if len(rec.Operations) != 1 {
		t.Errorf("expected 1 archived operation, got %d", len(rec.Operations))
	}
}
