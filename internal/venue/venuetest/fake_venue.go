// Package venuetest provides an in-memory venue used by package tests.
package venuetest

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
)

// CancelCall records one Cancel invocation.
type CancelCall struct {
	RemoteID int64
	Symbol   string
}

// FakeVenue is a configurable in-memory venue.Venue implementation.
// Zero value is usable; all fields are guarded by the internal mutex and
// should be set through the setters once the fake is shared with workers.
type FakeVenue struct {
	mu sync.Mutex

	prices     map[string]float64
	priceCalls map[string]int

	nextRemoteID int64
	fillQty      float64
	submitted    []types.Order
	cancelled    []CancelCall

	openOrders []types.Order
	trades     map[string][]types.Trade
	balances   map[string]float64
	books      map[string]types.OrderBook
	statuses   map[int64]types.OrderSnapshot

	barsFn func(query venue.BarsQuery) []types.Bar

	SubmitErr error
	CancelErr error
}

var _ venue.Venue = (*FakeVenue)(nil)

// NewFakeVenue creates a fake venue whose first assigned remote id is 1000.
func NewFakeVenue() *FakeVenue {
	return &FakeVenue{
		prices:       make(map[string]float64),
		priceCalls:   make(map[string]int),
		nextRemoteID: 1000,
		fillQty:      0,
		submitted:    nil,
		cancelled:    nil,
		openOrders:   nil,
		trades:       make(map[string][]types.Trade),
		balances:     make(map[string]float64),
		books:        make(map[string]types.OrderBook),
		statuses:     make(map[int64]types.OrderSnapshot),
		barsFn:       nil,
		SubmitErr:    nil,
		CancelErr:    nil,
	}
}

// SetPrice sets the last price for a symbol.
func (f *FakeVenue) SetPrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

// PriceCalls returns how many times LastPrice was called for a symbol.
func (f *FakeVenue) PriceCalls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.priceCalls[symbol]
}

// SetFillQty sets the filled quantity reported by subsequent submissions.
func (f *FakeVenue) SetFillQty(qty float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillQty = qty
}

// SetOpenOrders replaces the open order list returned by ListOpenOrders.
func (f *FakeVenue) SetOpenOrders(orders []types.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openOrders = append([]types.Order(nil), orders...)
}

// SetBalances replaces the balances map.
func (f *FakeVenue) SetBalances(balances map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balances = make(map[string]float64, len(balances))
	for asset, qty := range balances {
		f.balances[asset] = qty
	}
}

// SetOrderBook sets the book snapshot for a symbol.
func (f *FakeVenue) SetOrderBook(symbol string, book types.OrderBook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[symbol] = book
}

// SetStatus sets the snapshot returned by QueryStatus for a remote id.
func (f *FakeVenue) SetStatus(remoteID int64, snapshot types.OrderSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[remoteID] = snapshot
}

// SetBarsFunc installs the bar generator consulted by Bars.
func (f *FakeVenue) SetBarsFunc(fn func(query venue.BarsQuery) []types.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barsFn = fn
}

// SetTrades sets the trade history for a symbol.
func (f *FakeVenue) SetTrades(symbol string, trades []types.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades[symbol] = append([]types.Trade(nil), trades...)
}

// Submitted returns a copy of all submitted orders in dispatch order.
func (f *FakeVenue) Submitted() []types.Order {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]types.Order(nil), f.submitted...)
}

// Cancelled returns a copy of all cancel calls in dispatch order.
func (f *FakeVenue) Cancelled() []CancelCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]CancelCall(nil), f.cancelled...)
}

// Submit implements venue.Venue.
func (f *FakeVenue) Submit(_ context.Context, order *types.Order) (venue.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubmitErr != nil {
		return venue.SubmitResult{}, f.SubmitErr
	}

	remoteID := f.nextRemoteID
	f.nextRemoteID++
	f.submitted = append(f.submitted, *order)

	return venue.SubmitResult{RemoteID: remoteID, FilledQty: f.fillQty}, nil
}

// Cancel implements venue.Venue.
func (f *FakeVenue) Cancel(_ context.Context, remoteID int64, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CancelErr != nil {
		return f.CancelErr
	}

	f.cancelled = append(f.cancelled, CancelCall{RemoteID: remoteID, Symbol: symbol})

	return nil
}

// QueryStatus implements venue.Venue.
func (f *FakeVenue) QueryStatus(_ context.Context, remoteID int64, _ string) (types.OrderSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.statuses[remoteID], nil
}

// ListOpenOrders implements venue.Venue.
func (f *FakeVenue) ListOpenOrders(_ context.Context, symbol optional.Option[string]) ([]types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if symbol.IsNone() {
		return append([]types.Order(nil), f.openOrders...), nil
	}

	filtered := make([]types.Order, 0, len(f.openOrders))

	for _, o := range f.openOrders {
		if o.Symbol == symbol.Unwrap() {
			filtered = append(filtered, o)
		}
	}

	return filtered, nil
}

// ListTrades implements venue.Venue.
func (f *FakeVenue) ListTrades(_ context.Context, symbol string) ([]types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]types.Trade(nil), f.trades[symbol]...), nil
}

// Balances implements venue.Venue.
func (f *FakeVenue) Balances(_ context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	balances := make(map[string]float64, len(f.balances))
	for asset, qty := range f.balances {
		balances[asset] = qty
	}

	return balances, nil
}

// OrderBook implements venue.Venue.
func (f *FakeVenue) OrderBook(_ context.Context, symbol string) (types.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.books[symbol], nil
}

// Bars implements venue.Venue.
func (f *FakeVenue) Bars(_ context.Context, query venue.BarsQuery) ([]types.Bar, error) {
	f.mu.Lock()
	fn := f.barsFn
	f.mu.Unlock()

	if fn == nil {
		return []types.Bar{}, nil
	}

	return fn(query), nil
}

// LastPrice implements venue.Venue.
func (f *FakeVenue) LastPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.priceCalls[symbol]++

	return f.prices[symbol], nil
}
