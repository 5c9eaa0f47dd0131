// Package session runs the live trading loop. One Engine owns one symbol:
// it polls recent candles, evaluates the signal generator, and drives the
// position manager. The worker goroutine spawned by Start is the sole owner
// of the generator and position state; the atomic active flag is the only
// state shared with the caller.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/exchange"
	"github.com/rmarques/cryptobot/internal/metrics"
	"github.com/rmarques/cryptobot/internal/observer"
	"github.com/rmarques/cryptobot/internal/position"
	"github.com/rmarques/cryptobot/internal/storage"
	"github.com/rmarques/cryptobot/internal/storage/archive"
	"github.com/rmarques/cryptobot/internal/strategy"
)

const (
	DefaultInterval      = "1h"
	DefaultCandleLimit   = 1000
	DefaultPollInterval  = 5 * time.Minute
	DefaultSliceInterval = time.Minute
	DefaultErrorCooldown = time.Minute
)

// Config drives one trading session loop.
type Config struct {
	Symbol string

	// Interval and CandleLimit shape the market-data fetch each iteration.
	Interval    string
	CandleLimit int

	// PollInterval is the pause between iterations, slept in SliceInterval
	// increments so Stop takes effect within one slice. ErrorCooldown is
	// the pause after a failed iteration.
	PollInterval  time.Duration
	SliceInterval time.Duration
	ErrorCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = DefaultCandleLimit
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SliceInterval <= 0 || c.SliceInterval > c.PollInterval {
		c.SliceInterval = DefaultSliceInterval
	}
	if c.ErrorCooldown <= 0 {
		c.ErrorCooldown = DefaultErrorCooldown
	}
	return c
}

// Engine is the orchestration loop for one symbol. An Engine can run at
// most one session at a time; the store additionally enforces a single
// ACTIVE session per symbol across engines.
type Engine struct {
	cfg      Config
	exchange exchange.Exchange
	store    storage.Store
	gen      strategy.Generator
	log      *zap.Logger
	obs      observer.Observer
	metrics  *metrics.Registry
	archiver *archive.Archiver

	active atomic.Bool

	mu          sync.Mutex
	sessionID   string
	manager     *position.Manager
	investedQty decimal.Decimal
	done        chan struct{}
}

// New creates an Engine. obs, reg and arch may be nil; nil disables the
// corresponding reporting.
func New(cfg Config, exch exchange.Exchange, store storage.Store, gen strategy.Generator, log *zap.Logger, obs observer.Observer, reg *metrics.Registry, arch *archive.Archiver) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = observer.Nop{}
	}
	return &Engine{
		cfg:      cfg.withDefaults(),
		exchange: exch,
		store:    store,
		gen:      gen,
		log:      log,
		obs:      obs,
		metrics:  reg,
		archiver: arch,
	}
}

// Symbol returns the symbol this engine trades.
func (e *Engine) Symbol() string { return e.cfg.Symbol }

// Active reports whether a session loop is currently running.
func (e *Engine) Active() bool { return e.active.Load() }

// Start persists a new session and spawns the worker goroutine. It fails
// with core.ErrSessionActive when this engine, or any other holder of the
// store, already runs an ACTIVE session for the symbol.
func (e *Engine) Start(ctx context.Context, investedValue, investedQty float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active.Load() {
		return "", core.ErrSessionActive
	}

	id, err := e.store.CreateSession(ctx, e.cfg.Symbol, investedValue, investedQty)
	if err != nil {
		return "", err
	}

	e.sessionID = id
	e.manager = position.NewManager(e.exchange, e.store, e.log, e.obs, id)
	e.investedQty = decimal.NewFromFloat(investedQty)
	e.done = make(chan struct{})
	e.active.Store(true)
	if e.metrics != nil {
		e.metrics.SetSessionActive(e.cfg.Symbol, true)
	}

	e.log.Info("session started",
		zap.String("session_id", id),
		zap.String("symbol", e.cfg.Symbol),
		zap.Float64("invested_value", investedValue),
		zap.Float64("invested_qty", investedQty),
	)
	e.obs.OnLogMessage("trading session started: "+e.cfg.Symbol, observer.SeverityInfo)

	go e.loop(e.done)
	return id, nil
}

// Stop clears the active flag, waits for the in-flight iteration to finish,
// and persists the session end. Stopping a non-active engine fails with
// core.ErrSessionNotActive. The position, if any, is left open; closing on
// stop is the operator's call, not the engine's.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.active.Load() {
		e.mu.Unlock()
		return core.ErrSessionNotActive
	}
	e.active.Store(false)
	id := e.sessionID
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if e.metrics != nil {
		e.metrics.SetSessionActive(e.cfg.Symbol, false)
	}
	if err := e.store.StopSession(ctx, id); err != nil {
		return err
	}

	e.log.Info("session stopped", zap.String("session_id", id), zap.String("symbol", e.cfg.Symbol))
	e.obs.OnLogMessage("trading session stopped: "+e.cfg.Symbol, observer.SeverityInfo)

	e.archiveStopped(ctx, id)
	return nil
}

// SessionID returns the ID of the current or most recent session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// loop is the worker body. It exits only when the active flag clears; every
// iteration error is logged and followed by a cooldown, never a crash.
func (e *Engine) loop(done chan struct{}) {
	defer close(done)

	for e.active.Load() {
		if err := e.iterate(context.Background()); err != nil {
			code := core.ErrorCode(err)
			e.log.Warn("trading iteration failed",
				zap.String("symbol", e.cfg.Symbol),
				zap.String("code", code),
				zap.Error(err),
			)
			e.obs.OnLogMessage("iteration failed: "+err.Error(), observer.SeverityError)
			if e.metrics != nil {
				e.metrics.RecordPollError(e.cfg.Symbol, code)
			}
			e.sleepSliced(e.cfg.ErrorCooldown)
			continue
		}
		e.sleepSliced(e.cfg.PollInterval)
	}
}

// iterate runs one fetch -> signal -> act cycle.
func (e *Engine) iterate(ctx context.Context) error {
	if e.metrics != nil {
		e.metrics.RecordPollCycle(e.cfg.Symbol)
	}

	candles, err := e.exchange.GetRecentCandles(ctx, e.cfg.Symbol, e.cfg.Interval, e.cfg.CandleLimit)
	if err != nil {
		return err
	}
	if len(candles) > 0 {
		e.obs.OnPriceUpdate(e.cfg.Symbol, candles[len(candles)-1].Close)
	}

	e.gen.Update(candles)
	signal := e.gen.Signal()
	if e.metrics != nil {
		e.metrics.RecordSignal(e.gen.Name(), string(signal))
	}

	switch {
	case signal == core.SignalBuy && e.manager.State() == position.StateFlat:
		if err := e.manager.Open(ctx, e.cfg.Symbol, e.investedQty); err != nil {
			e.recordOrder(core.SideBuy, "rejected")
			return err
		}
		e.recordOrder(core.SideBuy, "filled")
	case signal == core.SignalSell && e.manager.State() == position.StateLong:
		if err := e.manager.Close(ctx, e.cfg.Symbol); err != nil {
			e.recordOrder(core.SideSell, "rejected")
			return err
		}
		e.recordOrder(core.SideSell, "filled")
	}
	return nil
}

func (e *Engine) recordOrder(side core.Side, status string) {
	if e.metrics != nil {
		e.metrics.RecordOrder(e.cfg.Symbol, string(side), status)
	}
}

// sleepSliced sleeps up to total, one slice at a time, bailing out as soon
// as the active flag clears.
func (e *Engine) sleepSliced(total time.Duration) {
	deadline := time.Now().Add(total)
	for e.active.Load() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		slice := e.cfg.SliceInterval
		if remaining < slice {
			slice = remaining
		}
		time.Sleep(slice)
	}
}

// archiveStopped writes the finished session to cold storage. Failures are
// logged only; the live flow already completed.
func (e *Engine) archiveStopped(ctx context.Context, id string) {
	if e.archiver == nil {
		return
	}
	sess, err := e.store.GetSession(ctx, id)
	if err != nil {
		e.log.Warn("archive skipped, session unreadable", zap.String("session_id", id), zap.Error(err))
		return
	}
	ops, err := e.store.ListOperations(ctx, id)
	if err != nil {
		e.log.Warn("archive skipped, operations unreadable", zap.String("session_id", id), zap.Error(err))
		return
	}
	path, err := e.archiver.Archive(ctx, *sess, ops)
	if err != nil {
		e.log.Warn("archiving session failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	e.log.Info("session archived", zap.String("session_id", id), zap.String("path", path))
}
