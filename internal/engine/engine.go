// Package engine wires the order manager, reconciler, market data cache,
// position manager and an optional strategy into one runnable unit.
package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-exec/internal/exec"
	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/marketdata"
	"github.com/rxtech-lab/argo-exec/internal/order"
	"github.com/rxtech-lab/argo-exec/internal/position"
	"github.com/rxtech-lab/argo-exec/internal/strategy"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"go.uber.org/zap"
)

// Callbacks holds the engine lifecycle callbacks. All fields are
// optional; nil means no callback is invoked.
type Callbacks struct {
	// OnEngineStart is called once all workers are running. A non-nil
	// return aborts the run.
	OnEngineStart func(symbols []string, interval string) error
	// OnEngineStop is called when the engine stops (always via defer).
	OnEngineStop func(err error)
	// OnSignal is called for every strategy signal, including holds.
	OnSignal func(signal types.Signal)
	// OnOrderPlaced is called when a signal turns into a queued order.
	OnOrderPlaced func(o *types.Order)
	// OnOrderFilled is called when a dispatched order reports a fill.
	OnOrderFilled func(localID int64, qty float64)
	// OnOrderAppeared is called for venue-originated orders adopted
	// during reconciliation.
	OnOrderAppeared func(o *types.Order)
	// OnOrderVanished is called when an order is no longer open on the
	// venue.
	OnOrderVanished func(localID int64)
	// OnError is called for non-fatal errors.
	OnError func(err error)
	// OnStrategyError is called when the strategy rejects a bar.
	OnStrategyError func(bar types.Bar, err error)
}

// Engine orchestrates live execution for a set of symbols.
type Engine struct {
	config      Config
	venue       venue.Venue
	strategy    strategy.Strategy
	orders      *order.Manager
	market      *marketdata.Cache
	positions   *position.Manager
	reconciler  *exec.Reconciler
	log         *logger.Logger
	initialized bool

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
	fillWg  sync.WaitGroup
}

// NewEngine creates an engine with a production logger.
func NewEngine() (*Engine, error) {
	log, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	return NewEngineWithLogger(log), nil
}

// NewEngineWithLogger creates an engine with the given logger.
func NewEngineWithLogger(log *logger.Logger) *Engine {
	return &Engine{
		config:      Config{},
		venue:       nil,
		strategy:    nil,
		orders:      nil,
		market:      nil,
		positions:   nil,
		reconciler:  nil,
		log:         log,
		initialized: false,
		stopCh:      nil,
		running:     false,
	}
}

// Initialize validates the configuration and prepares the engine.
func (e *Engine) Initialize(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if _, err := intervalDuration(config.Interval); config.Interval != "" && err != nil {
		return err
	}

	e.config = config.withDefaults()
	e.orders = order.NewManager(e.log)
	e.initialized = true

	return nil
}

// SetVenue configures the execution venue. Must be called before Run.
func (e *Engine) SetVenue(v venue.Venue) error {
	if v == nil {
		return errors.New(errors.ErrCodeVenueNotConfigured, "venue is nil")
	}

	e.venue = v

	return nil
}

// SetStrategy configures the trading policy. Optional; without one the
// engine only executes externally queued orders.
func (e *Engine) SetStrategy(s strategy.Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy is nil")
	}

	e.strategy = s

	return nil
}

// Orders exposes the order manager so callers can queue orders directly.
func (e *Engine) Orders() *order.Manager {
	return e.orders
}

// Run starts all workers and blocks until the context is cancelled or
// Stop is called. The shutdown is cooperative: every worker is joined
// before Run returns.
func (e *Engine) Run(ctx context.Context, callbacks Callbacks) (runErr error) {
	if !e.initialized {
		return errors.New(errors.ErrCodeEngineNotReady, "engine is not initialized")
	}

	if e.venue == nil {
		return errors.New(errors.ErrCodeVenueNotConfigured, "no venue configured")
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()

		return errors.New(errors.ErrCodeEngineNotReady, "engine is already running")
	}

	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()

		if callbacks.OnEngineStop != nil {
			callbacks.OnEngineStop(runErr)
		}
	}()

	e.market = marketdata.NewCache(e.venue, marketdata.Config{
		RefreshInterval: e.config.refreshInterval(),
		PriceHistoryCap: e.config.PriceHistoryLimit,
	}, e.log)

	e.positions = position.NewManager(e.venue, e.config.repriceInterval(), e.log)

	e.reconciler = exec.NewReconciler(e.orders, e.venue, exec.Config{
		PollInterval:      e.config.pollInterval(),
		ReconcileInterval: e.config.reconcileInterval(),
	}, exec.Callbacks{
		OnOrderAppeared: callbacks.OnOrderAppeared,
		OnOrderVanished: callbacks.OnOrderVanished,
		OnError:         callbacks.OnError,
	}, e.log)

	for _, symbol := range e.config.Symbols {
		e.market.SubscribeBars(symbol, e.config.Interval)
	}

	if e.strategy != nil {
		if err := e.strategy.Initialize(e.config.StrategyConfig); err != nil {
			return errors.Wrap(errors.ErrCodeEngineInitFailed, "strategy initialization failed", err)
		}
	}

	e.market.Start()
	defer e.market.Stop()

	e.positions.Start()
	defer e.positions.Stop()

	e.reconciler.Start()
	defer e.reconciler.Stop()

	// Joined after the strategy worker, once no new fill watchers can
	// be spawned.
	defer e.fillWg.Wait()

	var strategyDone chan struct{}
	if e.strategy != nil {
		strategyDone = make(chan struct{})

		go e.runStrategy(ctx, stopCh, strategyDone, callbacks)
		defer func() { <-strategyDone }()
		// Wake the worker before joining it, whatever the exit path.
		defer e.Stop()
	}

	e.log.Info("engine started",
		zap.Strings("symbols", e.config.Symbols),
		zap.String("interval", e.config.Interval),
	)

	if callbacks.OnEngineStart != nil {
		if err := callbacks.OnEngineStart(e.config.Symbols, e.config.Interval); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
	case <-stopCh:
	}

	e.log.Info("engine stopping")

	return nil
}

// Stop ends a blocked Run call. Safe to call when not running.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	close(e.stopCh)
}

// runStrategy feeds unseen bars to the strategy and turns its signals
// into queued orders.
func (e *Engine) runStrategy(ctx context.Context, stop <-chan struct{}, done chan<- struct{}, callbacks Callbacks) {
	defer close(done)

	ticker := time.NewTicker(e.config.refreshInterval())
	defer ticker.Stop()

	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			for _, symbol := range e.config.Symbols {
				e.processSymbol(ctx, stop, symbol, lastSeen, callbacks)
			}
		}
	}
}

func (e *Engine) processSymbol(ctx context.Context, stop <-chan struct{}, symbol string, lastSeen map[string]time.Time, callbacks Callbacks) {
	bars := e.market.GetBars(symbol, e.config.Interval)

	for _, bar := range bars {
		if !bar.Time.After(lastSeen[symbol]) {
			continue
		}

		lastSeen[symbol] = bar.Time

		signal, err := e.strategy.ProcessBar(strategy.Context{
			Market:    e.market,
			Positions: e.positions,
		}, bar)
		if err != nil {
			if callbacks.OnStrategyError != nil {
				callbacks.OnStrategyError(bar, err)
			}

			continue
		}

		if callbacks.OnSignal != nil {
			callbacks.OnSignal(signal)
		}

		e.actOnSignal(ctx, stop, signal, callbacks)
	}
}

// actOnSignal turns a buy or sell signal into a queued market order.
// Signal-only mode (OrderNotional == 0) places nothing.
func (e *Engine) actOnSignal(ctx context.Context, stop <-chan struct{}, signal types.Signal, callbacks Callbacks) {
	if e.config.OrderNotional <= 0 {
		return
	}

	var (
		side types.Side
		qty  float64
	)

	switch signal.Type {
	case types.SignalTypeBuy:
		side = types.SideBuy
		qty = e.market.GetQtyForPrice(signal.Symbol, e.config.OrderNotional)
	case types.SignalTypeSell:
		pos, ok := e.positions.GetPosition(signal.Symbol)
		if !ok {
			return
		}

		side = types.SideSell
		qty = pos.Quantity
	case types.SignalTypeHold:
		return
	default:
		return
	}

	if qty <= 0 {
		return
	}

	localID := e.orders.CreateOrder(types.OrderTypeMarket, side, signal.Symbol, qty, 0)

	o, ok := e.orders.GetOrderByID(localID)
	if ok && callbacks.OnOrderPlaced != nil {
		callbacks.OnOrderPlaced(o)
	}

	e.fillWg.Add(1)

	go e.watchFill(ctx, stop, localID, signal.Symbol, side, callbacks)
}

// watchFill applies the order's fill to the position book. An order whose
// dispatch failed never resolves its fill channel, so the watcher also
// exits on engine shutdown.
func (e *Engine) watchFill(ctx context.Context, stop <-chan struct{}, localID int64, symbol string, side types.Side, callbacks Callbacks) {
	defer e.fillWg.Done()

	select {
	case <-ctx.Done():
		return
	case <-stop:
		return
	case qty, ok := <-e.orders.FillResult(localID):
		if !ok || qty <= 0 {
			return
		}

		delta := qty
		if side == types.SideSell {
			delta = -qty
		}

		if err := e.positions.UpdatePosition(ctx, symbol, delta); err != nil {
			e.log.Warn("position update failed", zap.Int64("local_id", localID), zap.Error(err))

			if callbacks.OnError != nil {
				callbacks.OnError(err)
			}
		}

		if callbacks.OnOrderFilled != nil {
			callbacks.OnOrderFilled(localID, qty)
		}
	}
}

// intervalDuration converts a bar interval like 1m, 15m, 4h or 1d into a
// duration.
func intervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	switch strings.ToLower(interval[len(interval)-1:]) {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}
}
