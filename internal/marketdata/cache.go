// Package marketdata maintains per-symbol prices, order book snapshots,
// bar series and account balances, refreshed by a periodic worker pulling
// from the venue. The cache lock is never held across a venue call: the
// worker snapshots its targets under lock, performs the network reads
// unlocked, then reacquires the lock only to write results back.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"go.uber.org/zap"
)

const (
	// DefaultPriceHistoryCap bounds a symbol's price history. Reaching the
	// cap trims the oldest half in one batch.
	DefaultPriceHistoryCap = 1000

	// ColdBarWindow is the bar fetch size for an empty series.
	ColdBarWindow = 500

	// WarmBarWindow is the bar fetch size once a series is populated.
	WarmBarWindow = 10

	// DefaultRefreshInterval is the worker cadence and therefore the
	// staleness bound of every cached read.
	DefaultRefreshInterval = time.Second
)

// Config holds the cache tuning knobs.
type Config struct {
	RefreshInterval time.Duration `json:"refresh_interval" yaml:"refresh_interval"`
	PriceHistoryCap int           `json:"price_history_cap" yaml:"price_history_cap"`
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}

	if c.PriceHistoryCap <= 0 {
		c.PriceHistoryCap = DefaultPriceHistoryCap
	}

	return c
}

type barKey struct {
	symbol   string
	interval string
}

// Cache is the market data cache. All methods are safe for concurrent use.
type Cache struct {
	venue  venue.Venue
	log    *logger.Logger
	config Config

	mu       sync.Mutex
	symbols  map[string]struct{}
	prices   map[string][]float64
	books    map[string]types.OrderBook
	bars     map[barKey][]types.Bar
	balances map[string]float64

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewCache creates a cache over the given venue.
func NewCache(v venue.Venue, config Config, log *logger.Logger) *Cache {
	return &Cache{
		venue:    v,
		log:      log,
		config:   config.withDefaults(),
		symbols:  make(map[string]struct{}),
		prices:   make(map[string][]float64),
		books:    make(map[string]types.OrderBook),
		bars:     make(map[barKey][]types.Bar),
		balances: make(map[string]float64),
		running:  false,
		stop:     nil,
		done:     nil,
	}
}

// Subscribe registers a symbol for refresh, with empty containers.
func (c *Cache) Subscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.symbols[symbol]; ok {
		return
	}

	c.symbols[symbol] = struct{}{}
	c.prices[symbol] = []float64{}
	c.books[symbol] = types.OrderBook{Bids: nil, Asks: nil}
}

// SubscribeBars registers a symbol and a bar series for the interval.
func (c *Cache) SubscribeBars(symbol, interval string) {
	c.Subscribe(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	key := barKey{symbol: symbol, interval: interval}
	if _, ok := c.bars[key]; !ok {
		c.bars[key] = []types.Bar{}
	}
}

// Unsubscribe drops a symbol and all its cached containers.
func (c *Cache) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.symbols, symbol)
	delete(c.prices, symbol)
	delete(c.books, symbol)

	for key := range c.bars {
		if key.symbol == symbol {
			delete(c.bars, key)
		}
	}
}

// Start launches the refresh worker.
func (c *Cache) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		return
	}

	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.run(c.stop, c.done)
}

// Stop blocks until the worker finishes its current refresh and exits.
func (c *Cache) Stop() {
	c.runMu.Lock()

	if !c.running {
		c.runMu.Unlock()

		return
	}

	c.running = false
	stop, done := c.stop, c.done
	c.runMu.Unlock()

	close(stop)
	<-done
}

// IsRunning reports whether the refresh worker is active.
func (c *Cache) IsRunning() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	return c.running
}

func (c *Cache) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.config.RefreshInterval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.refreshOnce(ctx)
		}
	}
}

// refreshOnce performs one full refresh pass: snapshot the tracked symbol
// and bar sets under lock, release, do every network read, reacquire to
// write back.
func (c *Cache) refreshOnce(ctx context.Context) {
	c.mu.Lock()
	symbols := make([]string, 0, len(c.symbols))

	for s := range c.symbols {
		symbols = append(symbols, s)
	}

	barKeys := make([]barKey, 0, len(c.bars))
	barLens := make(map[barKey]int, len(c.bars))

	for key, series := range c.bars {
		barKeys = append(barKeys, key)
		barLens[key] = len(series)
	}
	c.mu.Unlock()

	freshPrices := make(map[string]float64, len(symbols))
	freshBooks := make(map[string]types.OrderBook, len(symbols))

	for _, symbol := range symbols {
		price, err := c.venue.LastPrice(ctx, symbol)
		if err != nil {
			c.log.Warn("price refresh failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			freshPrices[symbol] = price
		}

		book, err := c.venue.OrderBook(ctx, symbol)
		if err != nil {
			c.log.Warn("order book refresh failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			freshBooks[symbol] = book
		}
	}

	freshBars := make(map[barKey][]types.Bar, len(barKeys))

	for _, key := range barKeys {
		window := WarmBarWindow
		if barLens[key] == 0 {
			window = ColdBarWindow
		}

		bars, err := c.venue.Bars(ctx, venue.BarsQuery{
			Symbol:   key.symbol,
			Interval: key.interval,
			Start:    optional.None[time.Time](),
			End:      optional.None[time.Time](),
			Limit:    window,
		})
		if err != nil {
			c.log.Warn("bar refresh failed",
				zap.String("symbol", key.symbol),
				zap.String("interval", key.interval),
				zap.Error(err),
			)

			continue
		}

		freshBars[key] = bars
	}

	balances, balancesErr := c.venue.Balances(ctx)
	if balancesErr != nil {
		c.log.Warn("balance refresh failed", zap.Error(balancesErr))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for symbol, price := range freshPrices {
		c.appendPriceLocked(symbol, price)
	}

	for symbol, book := range freshBooks {
		if _, ok := c.symbols[symbol]; ok {
			c.books[symbol] = book
		}
	}

	for key, fresh := range freshBars {
		if stored, ok := c.bars[key]; ok {
			c.bars[key] = mergeBars(stored, fresh)
		}
	}

	if balancesErr == nil && balances != nil {
		c.balances = balances
	}
}

// appendPriceLocked appends one price, batch-trimming the oldest half when
// the history reaches the cap. Caller holds the cache lock.
func (c *Cache) appendPriceLocked(symbol string, price float64) {
	history, ok := c.prices[symbol]
	if !ok {
		return
	}

	history = append(history, price)

	if len(history) >= c.config.PriceHistoryCap {
		keep := c.config.PriceHistoryCap / 2
		history = append([]float64(nil), history[len(history)-keep:]...)
	}

	c.prices[symbol] = history
}

// mergeBars folds a fresh fetch into a stored series. A fresh bar with the
// same timestamp as the stored tail replaces it (a still-forming bar);
// older bars are dropped; nothing is ever duplicated.
func mergeBars(stored, fresh []types.Bar) []types.Bar {
	if len(stored) == 0 {
		return fresh
	}

	merged := stored

	for _, bar := range fresh {
		tail := merged[len(merged)-1].Time

		switch {
		case bar.Time.Before(tail):
			// Older than the stored tail.
		case bar.Time.Equal(tail):
			merged[len(merged)-1] = bar
		default:
			merged = append(merged, bar)
		}
	}

	return merged
}

// GetPrice returns the latest cached price. An empty history triggers one
// synchronous fetch-and-cache (cold start). Unsubscribed symbols return -1.
func (c *Cache) GetPrice(symbol string) float64 {
	c.mu.Lock()

	if _, ok := c.symbols[symbol]; !ok {
		c.mu.Unlock()

		return -1
	}

	if history := c.prices[symbol]; len(history) > 0 {
		price := history[len(history)-1]
		c.mu.Unlock()

		return price
	}
	c.mu.Unlock()

	price, err := c.venue.LastPrice(context.Background(), symbol)
	if err != nil {
		c.log.Warn("cold start price fetch failed", zap.String("symbol", symbol), zap.Error(err))

		return -1
	}

	c.mu.Lock()
	c.appendPriceLocked(symbol, price)
	c.mu.Unlock()

	return price
}

// GetQtyForPrice returns the quantity purchasable for the given notional
// at the current price, or 0 if no price is available.
func (c *Cache) GetQtyForPrice(symbol string, notional float64) float64 {
	price := c.GetPrice(symbol)
	if price <= 0 {
		return 0
	}

	return notional / price
}

// GetPriceHistory returns a copy of the cached price history.
func (c *Cache) GetPriceHistory(symbol string) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]float64(nil), c.prices[symbol]...)
}

// GetOrderBook returns the latest cached book snapshot.
func (c *Cache) GetOrderBook(symbol string) types.OrderBook {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.books[symbol]
}

// GetBars returns a copy of the cached bar series for (symbol, interval).
func (c *Cache) GetBars(symbol, interval string) []types.Bar {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]types.Bar(nil), c.bars[barKey{symbol: symbol, interval: interval}]...)
}

// GetBalances returns a copy of the latest cached balances.
func (c *Cache) GetBalances() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	balances := make(map[string]float64, len(c.balances))
	for asset, qty := range c.balances {
		balances[asset] = qty
	}

	return balances
}

// GetOrderStatus issues a throwaway status query and returns the
// normalized status string. Any unparseable response presents as REJECTED.
func (c *Cache) GetOrderStatus(ctx context.Context, remoteID int64, symbol string) string {
	snapshot, err := c.venue.QueryStatus(ctx, remoteID, symbol)
	if err != nil || snapshot.Status == "" {
		return string(types.OrderStatusRejected)
	}

	return string(snapshot.Status)
}
