package position

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/exchange"
	"github.com/rmarques/cryptobot/internal/observer"
	"github.com/rmarques/cryptobot/internal/storage"
)

// State is the position state machine state.
type State string

const (
	StateFlat State = "FLAT"
	StateLong State = "LONG"
)

// Position is a read-only snapshot of the manager's state. Quantity is set
// iff HasPosition is true.
type Position struct {
	Symbol      string
	HasPosition bool
	Quantity    decimal.Decimal
}

// Manager tracks the flat/long position of one trading session and executes
// the FLAT->LONG and LONG->FLAT transitions against the exchange. It is
// owned by a single session worker and is not safe for concurrent use; the
// session loop is its only caller.
//
// Every successful transition records one Operation through the store and
// reports through the logger and observer. A failed persistence write is
// logged and does not undo the transition: the exchange order already
// happened, the history is merely incomplete.
type Manager struct {
	exchange  exchange.Exchange
	store     storage.Store
	log       *zap.Logger
	obs       observer.Observer
	sessionID string

	symbol      string
	hasPosition bool
	quantity    decimal.Decimal
	now         func() time.Time
}

// NewManager creates a Manager for one session. obs may be nil.
func NewManager(exch exchange.Exchange, store storage.Store, log *zap.Logger, obs observer.Observer, sessionID string) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = observer.Nop{}
	}
	return &Manager{
		exchange:  exch,
		store:     store,
		log:       log,
		obs:       obs,
		sessionID: sessionID,
		now:       time.Now,
	}
}

// State returns the current state machine state.
func (m *Manager) State() State {
	if m.hasPosition {
		return StateLong
	}
	return StateFlat
}

// Position returns a snapshot of the current position.
func (m *Manager) Position() Position {
	return Position{
		Symbol:      m.symbol,
		HasPosition: m.hasPosition,
		Quantity:    m.quantity,
	}
}

// Open transitions FLAT -> LONG: it resolves the symbol's lot rules,
// adjusts desiredQty to them, and places a BUY market order. The state is
// unchanged on any failure. Calling Open while LONG fails without side
// effects; duplicate BUY signals are absorbed here.
func (m *Manager) Open(ctx context.Context, symbol string, desiredQty decimal.Decimal) error {
	if m.hasPosition {
		return core.ErrPositionOpen
	}

	lot, err := m.exchange.GetLotConstraints(ctx, symbol)
	if err != nil {
		return err
	}

	adjusted := Adjust(desiredQty, lot.StepSize)
	if err := m.checkBounds(adjusted, lot); err != nil {
		m.log.Warn("rejecting open",
			zap.String("symbol", symbol),
			zap.String("desired", desiredQty.String()),
			zap.String("adjusted", adjusted.String()),
			zap.Error(err),
		)
		return err
	}

	conf, err := m.exchange.PlaceMarketOrder(ctx, symbol, core.SideBuy, adjusted)
	if err != nil {
		return err
	}

	filled := executedQty(conf, adjusted)
	m.hasPosition = true
	m.quantity = filled
	m.symbol = symbol

	m.record(ctx, core.SideBuy, symbol, filled, conf)
	m.log.Info("position opened",
		zap.String("symbol", symbol),
		zap.String("quantity", filled.String()),
	)
	m.obs.OnLogMessage(fmt.Sprintf("position opened: %s %s", filled, symbol), observer.SeverityInfo)
	return nil
}

// Close transitions LONG -> FLAT by selling the account's free balance of
// the base asset rather than the tracked quantity, so externally filled
// orders and fee drift do not strand dust. The state is unchanged on any
// failure. Calling Close while FLAT fails without side effects.
func (m *Manager) Close(ctx context.Context, symbol string) error {
	if !m.hasPosition {
		return core.ErrNoPosition
	}

	lot, err := m.exchange.GetLotConstraints(ctx, symbol)
	if err != nil {
		return err
	}

	free, err := m.exchange.GetFreeBalance(ctx, lot.BaseAsset)
	if err != nil {
		return err
	}

	adjusted := Adjust(free, lot.StepSize)
	if err := m.checkBounds(adjusted, lot); err != nil {
		m.log.Warn("rejecting close",
			zap.String("symbol", symbol),
			zap.String("free", free.String()),
			zap.String("adjusted", adjusted.String()),
			zap.Error(err),
		)
		return err
	}

	conf, err := m.exchange.PlaceMarketOrder(ctx, symbol, core.SideSell, adjusted)
	if err != nil {
		return err
	}

	sold := executedQty(conf, adjusted)
	m.hasPosition = false
	m.quantity = decimal.Zero
	m.symbol = ""

	m.record(ctx, core.SideSell, symbol, sold, conf)
	m.log.Info("position closed",
		zap.String("symbol", symbol),
		zap.String("quantity", sold.String()),
	)
	m.obs.OnLogMessage(fmt.Sprintf("position closed: %s", symbol), observer.SeverityInfo)
	return nil
}

// checkBounds validates an adjusted quantity against the lot rules.
func (m *Manager) checkBounds(adjusted decimal.Decimal, lot *core.LotConstraints) error {
	if adjusted.IsZero() {
		return core.WrapError(core.ErrQuantityOutOfRange, fmt.Errorf("no valid position size below step %s", lot.StepSize))
	}
	if adjusted.LessThan(lot.MinQty) {
		return core.WrapError(core.ErrQuantityOutOfRange, fmt.Errorf("quantity %s below minimum %s", adjusted, lot.MinQty))
	}
	if adjusted.GreaterThan(lot.MaxQty) {
		return core.WrapError(core.ErrQuantityOutOfRange, fmt.Errorf("quantity %s above maximum %s", adjusted, lot.MaxQty))
	}
	return nil
}

// record persists the operation and notifies the observer. Persistence is
// advisory: a failed write leaves the position state as-is.
func (m *Manager) record(ctx context.Context, side core.Side, symbol string, qty decimal.Decimal, conf *exchange.OrderConfirmation) {
	price := conf.AvgFillPrice
	if price.IsZero() {
		current, err := m.exchange.GetCurrentPrice(ctx, symbol)
		if err != nil {
			m.log.Warn("no price for operation record", zap.String("symbol", symbol), zap.Error(err))
		} else {
			price = current
		}
	}

	op := core.NewOperation(m.sessionID, side, symbol, m.now(), price, qty)
	if err := m.store.RecordOperation(ctx, op); err != nil {
		m.log.Error("recording operation failed, session history incomplete",
			zap.String("session_id", m.sessionID),
			zap.String("side", string(side)),
			zap.Error(err),
		)
	}
	m.obs.OnOperation(op)
}

// executedQty prefers the exchange-reported fill quantity over the request.
func executedQty(conf *exchange.OrderConfirmation, requested decimal.Decimal) decimal.Decimal {
	if conf != nil && conf.ExecutedQty.IsPositive() {
		return conf.ExecutedQty
	}
	return requested
}
