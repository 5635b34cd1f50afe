// Package venue defines the abstract capability the execution stack depends
// on. A concrete adapter (e.g. Binance) implements it over the venue's wire
// protocol; the rest of the system never sees transport or serialization.
package venue

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exec/internal/types"
)

// BarsMaxLimit is the largest bar window a venue call may request.
const BarsMaxLimit = 1000

// SubmitResult is the venue's answer to a successful order submission.
type SubmitResult struct {
	RemoteID  int64
	FilledQty float64
}

// BarsQuery narrows a Bars call. Start and End are optional; Limit must be
// at most BarsMaxLimit.
type BarsQuery struct {
	Symbol   string
	Interval string
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
	Limit    int
}

// Venue is the capability set the core depends on. Implementations return
// errors carrying the venue error codes from pkg/errors; authenticated
// read operations degrade to an empty result plus a diagnostic log line
// when no session is configured, rather than returning an error.
type Venue interface {
	// Submit sends an order and returns the venue id and immediately
	// filled quantity.
	Submit(ctx context.Context, order *types.Order) (SubmitResult, error)
	// Cancel cancels the order with the given venue id.
	Cancel(ctx context.Context, remoteID int64, symbol string) error
	// QueryStatus fetches the venue's view of one order.
	QueryStatus(ctx context.Context, remoteID int64, symbol string) (types.OrderSnapshot, error)
	// ListOpenOrders lists open orders, optionally restricted to a symbol.
	ListOpenOrders(ctx context.Context, symbol optional.Option[string]) ([]types.Order, error)
	// ListTrades lists executed trades for a symbol.
	ListTrades(ctx context.Context, symbol string) ([]types.Trade, error)
	// Balances returns free quantity per asset.
	Balances(ctx context.Context) (map[string]float64, error)
	// OrderBook returns the current book snapshot, best price first.
	OrderBook(ctx context.Context, symbol string) (types.OrderBook, error)
	// Bars returns OHLCV bars for the query window.
	Bars(ctx context.Context, query BarsQuery) ([]types.Bar, error)
	// LastPrice returns the latest traded price for a symbol.
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
