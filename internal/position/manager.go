// Package position tracks per-symbol holdings and a running PnL scalar.
// PnL always equals the sum of quantity times mark over all open
// positions; every mutation adjusts it by the exact delta using decimal
// arithmetic, so repeated repricing accumulates no float drift.
package position

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRepriceInterval is the mark-to-market worker cadence.
const DefaultRepriceInterval = time.Second

// Manager maintains open positions and marks them to market on a ticker.
// All methods are safe for concurrent use.
type Manager struct {
	venue    venue.Venue
	log      *logger.Logger
	interval time.Duration

	mu        sync.Mutex
	positions map[string]types.Position
	pnl       decimal.Decimal

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewManager creates a position manager repricing at the given interval.
// A non-positive interval falls back to DefaultRepriceInterval.
func NewManager(v venue.Venue, interval time.Duration, log *logger.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultRepriceInterval
	}

	return &Manager{
		venue:     v,
		log:       log,
		interval:  interval,
		positions: make(map[string]types.Position),
		pnl:       decimal.Zero,
		running:   false,
		stop:      nil,
		done:      nil,
	}
}

// UpdatePosition applies a signed quantity delta to the symbol's position.
// A symbol with no open position is priced at the current market price;
// an existing position keeps its mark. A position whose quantity reaches
// zero is closed and removed.
func (m *Manager) UpdatePosition(ctx context.Context, symbol string, deltaQty float64) error {
	// Fetch the market price before taking the lock. It is only needed
	// for a brand new position, but the lock must not cover a venue call.
	market, fetchErr := m.venue.LastPrice(ctx, symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		if fetchErr != nil {
			return fetchErr
		}

		pos = types.Position{Symbol: symbol, Quantity: 0, Mark: market}
	}

	delta := decimal.NewFromFloat(deltaQty)
	m.pnl = m.pnl.Add(delta.Mul(decimal.NewFromFloat(pos.Mark)))

	qty := decimal.NewFromFloat(pos.Quantity).Add(delta)
	if qty.IsZero() {
		delete(m.positions, symbol)

		return nil
	}

	pos.Quantity, _ = qty.Float64()
	m.positions[symbol] = pos

	return nil
}

// GetPosition returns the open position for a symbol, if any.
func (m *Manager) GetPosition(symbol string) (types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]

	return pos, ok
}

// GetPositions returns a copy of all open positions.
func (m *Manager) GetPositions() []types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := make([]types.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		positions = append(positions, pos)
	}

	return positions
}

// GetPnL returns the running mark-to-market PnL.
func (m *Manager) GetPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	pnl, _ := m.pnl.Float64()

	return pnl
}

// Start launches the repricing worker.
func (m *Manager) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.running {
		return
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.run(m.stop, m.done)
}

// Stop blocks until the worker finishes its current pass and exits.
func (m *Manager) Stop() {
	m.runMu.Lock()

	if !m.running {
		m.runMu.Unlock()

		return
	}

	m.running = false
	stop, done := m.stop, m.done
	m.runMu.Unlock()

	close(stop)
	<-done
}

// IsRunning reports whether the repricing worker is active.
func (m *Manager) IsRunning() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	return m.running
}

func (m *Manager) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.repriceOnce(ctx)
		}
	}
}

// repriceOnce marks every open position to the current market price. Each
// mark is fetched outside the lock; the write-back subtracts the old
// contribution and adds the new one.
func (m *Manager) repriceOnce(ctx context.Context) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))

	for symbol := range m.positions {
		symbols = append(symbols, symbol)
	}
	m.mu.Unlock()

	for _, symbol := range symbols {
		mark, err := m.venue.LastPrice(ctx, symbol)
		if err != nil {
			m.log.Warn("mark fetch failed", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		m.mu.Lock()

		pos, ok := m.positions[symbol]
		if !ok || pos.Mark == mark {
			m.mu.Unlock()

			continue
		}

		qty := decimal.NewFromFloat(pos.Quantity)
		m.pnl = m.pnl.Sub(qty.Mul(decimal.NewFromFloat(pos.Mark)))
		m.pnl = m.pnl.Add(qty.Mul(decimal.NewFromFloat(mark)))

		pos.Mark = mark
		m.positions[symbol] = pos
		m.mu.Unlock()
	}
}
