// Package order owns order identity and intent queues. The manager is the
// authoritative directory of in-flight orders and exposes a pull interface
// consumed by the venue-facing driver.
package order

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"go.uber.org/zap"
)

// OpenOrdersDiff reports how a reconciliation snapshot changed the sent
// order directory: ids newly present and ids no longer open. A vanished id
// is either filled or cancelled; without a fill stream the two are
// indistinguishable here.
type OpenOrdersDiff struct {
	Appeared []int64
	Vanished []int64
}

// Manager queues order intents, assigns local ids and tracks dispatched
// orders. All methods are safe for concurrent use.
type Manager struct {
	log *logger.Logger

	idMu   sync.Mutex
	nextID int64

	queueMu sync.Mutex
	pending []*types.Order
	cancels []types.CancelIntent

	sentMu  sync.Mutex
	sent    map[int64]*types.Order
	symbols map[string]struct{}

	fillMu   sync.Mutex
	fills    map[int64]chan float64
	lastFill float64
}

// NewManager creates an order manager with an empty directory.
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		log:      log,
		nextID:   0,
		pending:  nil,
		cancels:  nil,
		sent:     make(map[int64]*types.Order),
		symbols:  make(map[string]struct{}),
		fills:    make(map[int64]chan float64),
		lastFill: -1,
	}
}

// newOrderID assigns the next local id. Ids are strictly increasing and
// never reused.
func (m *Manager) newOrderID() int64 {
	m.idMu.Lock()
	defer m.idMu.Unlock()

	id := m.nextID
	m.nextID++

	return id
}

// CreateOrder queues a new order intent and returns its local id. No
// validation happens here; malformed orders surface when dispatch fails.
func (m *Manager) CreateOrder(orderType types.OrderType, side types.Side, symbol string, quantity, price float64) int64 {
	return m.CreateOrderFrom(types.Order{
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
	})
}

// CreateOrderFrom queues a caller-supplied order. The local id is still
// assigned here by the single counter; any id on the argument is ignored.
func (m *Manager) CreateOrderFrom(order types.Order) int64 {
	order.ID = m.newOrderID()
	order.RemoteID = 0

	m.sentMu.Lock()
	m.symbols[order.Symbol] = struct{}{}
	m.sentMu.Unlock()

	m.fillMu.Lock()
	m.fills[order.ID] = make(chan float64, 1)
	m.fillMu.Unlock()

	m.queueMu.Lock()
	m.pending = append(m.pending, &order)
	m.queueMu.Unlock()

	m.log.Debug("order queued",
		zap.Int64("local_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
	)

	return order.ID
}

// CancelOrder queues a cancel intent for the given local id.
func (m *Manager) CancelOrder(localID int64, symbol string) {
	m.queueMu.Lock()
	m.cancels = append(m.cancels, types.CancelIntent{LocalID: localID, Symbol: symbol})
	m.queueMu.Unlock()

	m.log.Debug("cancel queued", zap.Int64("local_id", localID), zap.String("symbol", symbol))
}

// CancelAllOrders enqueues one cancel per order present in the sent
// directory at call time. Orders created afterwards are unaffected.
func (m *Manager) CancelAllOrders() {
	m.sentMu.Lock()
	intents := make([]types.CancelIntent, 0, len(m.sent))

	for id, o := range m.sent {
		intents = append(intents, types.CancelIntent{LocalID: id, Symbol: o.Symbol})
	}
	m.sentMu.Unlock()

	// Deterministic dispatch order for a bulk cancel.
	sort.Slice(intents, func(i, j int) bool { return intents[i].LocalID < intents[j].LocalID })

	m.queueMu.Lock()
	m.cancels = append(m.cancels, intents...)
	m.queueMu.Unlock()

	m.log.Info("cancel all queued", zap.Int("count", len(intents)))
}

// HasOrders reports whether a created order is waiting for dispatch.
func (m *Manager) HasOrders() bool {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	return len(m.pending) > 0
}

// NextOrder pops the oldest pending order, inserts it into the sent
// directory and returns a live handle the driver may mutate in place with
// the remote id.
func (m *Manager) NextOrder() (*types.Order, bool) {
	m.queueMu.Lock()

	if len(m.pending) == 0 {
		m.queueMu.Unlock()

		return nil, false
	}

	order := m.pending[0]
	m.pending = m.pending[1:]
	m.queueMu.Unlock()

	m.sentMu.Lock()
	m.sent[order.ID] = order
	m.sentMu.Unlock()

	return order, true
}

// HasCancels reports whether a cancel intent is waiting for dispatch.
func (m *Manager) HasCancels() bool {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	return len(m.cancels) > 0
}

// NextCancel pops the oldest cancel intent.
func (m *Manager) NextCancel() (types.CancelIntent, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	if len(m.cancels) == 0 {
		return types.CancelIntent{}, false
	}

	intent := m.cancels[0]
	m.cancels = m.cancels[1:]

	return intent, true
}

// UpdateOpenOrders atomically replaces the sent order directory with a
// fresh snapshot. The previous contents are discarded, not merged: an
// order absent from the snapshot is no longer open. The returned diff
// lists ids that appeared and ids that vanished.
func (m *Manager) UpdateOpenOrders(snapshot map[int64]*types.Order) OpenOrdersDiff {
	m.sentMu.Lock()

	diff := OpenOrdersDiff{Appeared: nil, Vanished: nil}

	for id := range snapshot {
		if _, ok := m.sent[id]; !ok {
			diff.Appeared = append(diff.Appeared, id)
		}
	}

	for id := range m.sent {
		if _, ok := snapshot[id]; !ok {
			diff.Vanished = append(diff.Vanished, id)
		}
	}

	m.sent = snapshot

	for _, o := range snapshot {
		m.symbols[o.Symbol] = struct{}{}
	}
	m.sentMu.Unlock()

	sort.Slice(diff.Appeared, func(i, j int) bool { return diff.Appeared[i] < diff.Appeared[j] })
	sort.Slice(diff.Vanished, func(i, j int) bool { return diff.Vanished[i] < diff.Vanished[j] })

	return diff
}

// GetOrderByID returns the order with the given local id from the sent
// directory, falling back to the pending queue.
func (m *Manager) GetOrderByID(localID int64) (*types.Order, bool) {
	m.sentMu.Lock()
	if o, ok := m.sent[localID]; ok {
		m.sentMu.Unlock()

		return o, true
	}
	m.sentMu.Unlock()

	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	for _, o := range m.pending {
		if o.ID == localID {
			return o, true
		}
	}

	return nil, false
}

// GetSymbols returns the distinct symbols ever ordered, sorted.
func (m *Manager) GetSymbols() []string {
	m.sentMu.Lock()
	symbols := make([]string, 0, len(m.symbols))

	for s := range m.symbols {
		symbols = append(symbols, s)
	}
	m.sentMu.Unlock()

	sort.Strings(symbols)

	return symbols
}

// FillResult returns the channel that receives the filled quantity of the
// order once the driver dispatches it. The channel is buffered; the value
// arrives at most once.
func (m *Manager) FillResult(localID int64) <-chan float64 {
	m.fillMu.Lock()
	defer m.fillMu.Unlock()

	ch, ok := m.fills[localID]
	if !ok {
		// Unknown id: a closed channel so callers never block forever.
		ch = make(chan float64)
		close(ch)
	}

	return ch
}

// ResolveFill publishes the filled quantity for a dispatched order. Called
// by the venue-facing driver, at most once per order.
func (m *Manager) ResolveFill(localID int64, qty float64) {
	m.fillMu.Lock()
	defer m.fillMu.Unlock()

	m.lastFill = qty

	ch, ok := m.fills[localID]
	if !ok {
		return
	}

	select {
	case ch <- qty:
	default:
	}
}

// LastFilledQty returns the filled quantity of the most recently resolved
// dispatch, or -1 if nothing has been resolved yet.
func (m *Manager) LastFilledQty() float64 {
	m.fillMu.Lock()
	defer m.fillMu.Unlock()

	return m.lastFill
}
