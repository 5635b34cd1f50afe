package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"github.com/rxtech-lab/argo-exec/internal/venue/venuetest"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite

	fake  *venuetest.FakeVenue
	cache *Cache
}

func (suite *CacheTestSuite) SetupTest() {
	suite.fake = venuetest.NewFakeVenue()
	suite.cache = NewCache(suite.fake, Config{
		RefreshInterval: time.Hour,
	}, logger.NewNopLogger())
}

func (suite *CacheTestSuite) TestColdStartFetchesOnce() {
	suite.fake.SetPrice("BTCUSDT", 42.5)
	suite.cache.Subscribe("BTCUSDT")

	suite.Require().InDelta(42.5, suite.cache.GetPrice("BTCUSDT"), 1e-9)
	suite.Require().Equal(1, suite.fake.PriceCalls("BTCUSDT"))

	// Warm reads never touch the venue.
	suite.Require().InDelta(42.5, suite.cache.GetPrice("BTCUSDT"), 1e-9)
	suite.Require().Equal(1, suite.fake.PriceCalls("BTCUSDT"))
}

func (suite *CacheTestSuite) TestUnsubscribedPriceIsNegative() {
	suite.fake.SetPrice("ETHUSDT", 3000)

	suite.Require().InDelta(-1, suite.cache.GetPrice("ETHUSDT"), 1e-9)
	suite.Require().Equal(0, suite.fake.PriceCalls("ETHUSDT"))
}

func (suite *CacheTestSuite) TestQtyForPrice() {
	suite.fake.SetPrice("BTCUSDT", 25)
	suite.cache.Subscribe("BTCUSDT")

	suite.Require().InDelta(4, suite.cache.GetQtyForPrice("BTCUSDT", 100), 1e-9)
	suite.Require().InDelta(0, suite.cache.GetQtyForPrice("ETHUSDT", 100), 1e-9)
}

func (suite *CacheTestSuite) TestPriceHistoryTrimsOldestHalfInOneBatch() {
	cache := NewCache(suite.fake, Config{
		RefreshInterval: time.Hour,
		PriceHistoryCap: 10,
	}, logger.NewNopLogger())
	cache.Subscribe("BTCUSDT")

	ctx := context.Background()

	for i := 1; i <= 9; i++ {
		suite.fake.SetPrice("BTCUSDT", float64(i))
		cache.refreshOnce(ctx)
	}

	suite.Require().Len(cache.GetPriceHistory("BTCUSDT"), 9)

	// The append that reaches the cap drops the oldest half at once.
	suite.fake.SetPrice("BTCUSDT", 10)
	cache.refreshOnce(ctx)

	history := cache.GetPriceHistory("BTCUSDT")
	suite.Require().Len(history, 5)
	suite.Require().InDelta(6, history[0], 1e-9)
	suite.Require().InDelta(10, history[4], 1e-9)
}

func (suite *CacheTestSuite) TestBarRefreshWindows() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limits := []int{}

	suite.fake.SetBarsFunc(func(query venue.BarsQuery) []types.Bar {
		limits = append(limits, query.Limit)

		bars := make([]types.Bar, 0, query.Limit)
		for i := 0; i < query.Limit; i++ {
			bars = append(bars, types.Bar{
				Time:  base.Add(time.Duration(i) * time.Minute),
				Close: float64(i),
			})
		}

		return bars
	})

	suite.cache.SubscribeBars("BTCUSDT", "1m")

	ctx := context.Background()
	suite.cache.refreshOnce(ctx)

	suite.Require().Equal([]int{ColdBarWindow}, limits)
	suite.Require().Len(suite.cache.GetBars("BTCUSDT", "1m"), ColdBarWindow)

	suite.cache.refreshOnce(ctx)
	suite.Require().Equal([]int{ColdBarWindow, WarmBarWindow}, limits)
}

func (suite *CacheTestSuite) TestBarMergeReplacesStillFormingBar() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	stored := make([]types.Bar, 0, 500)
	for i := 0; i < 500; i++ {
		stored = append(stored, types.Bar{Time: base.Add(time.Duration(i) * time.Minute), Close: float64(i)})
	}

	// The fresh batch's first bar shares the stored tail's timestamp, so it
	// replaces that bar instead of duplicating it.
	fresh := make([]types.Bar, 0, 10)
	for i := 499; i < 509; i++ {
		fresh = append(fresh, types.Bar{Time: base.Add(time.Duration(i) * time.Minute), Close: float64(i) + 0.5})
	}

	merged := mergeBars(stored, fresh)
	suite.Require().Len(merged, 509)
	suite.Require().InDelta(499.5, merged[499].Close, 1e-9)
	suite.Require().True(merged[508].Time.Equal(base.Add(508 * time.Minute)))
}

func (suite *CacheTestSuite) TestBarMergeAppendsDisjointBatch() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	stored := make([]types.Bar, 0, 500)
	for i := 0; i < 500; i++ {
		stored = append(stored, types.Bar{Time: base.Add(time.Duration(i) * time.Minute)})
	}

	fresh := make([]types.Bar, 0, 10)
	for i := 500; i < 510; i++ {
		fresh = append(fresh, types.Bar{Time: base.Add(time.Duration(i) * time.Minute)})
	}

	suite.Require().Len(mergeBars(stored, fresh), 510)
}

func (suite *CacheTestSuite) TestBarMergeDropsOlderBars() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	stored := []types.Bar{
		{Time: base, Close: 1},
		{Time: base.Add(time.Minute), Close: 2},
	}
	fresh := []types.Bar{
		{Time: base.Add(-time.Minute), Close: 0},
		{Time: base.Add(2 * time.Minute), Close: 3},
	}

	merged := mergeBars(stored, fresh)
	suite.Require().Len(merged, 3)
	suite.Require().InDelta(1, merged[0].Close, 1e-9)
	suite.Require().InDelta(3, merged[2].Close, 1e-9)
}

func (suite *CacheTestSuite) TestRefreshCachesBookAndBalances() {
	suite.fake.SetPrice("BTCUSDT", 100)
	suite.fake.SetOrderBook("BTCUSDT", types.OrderBook{
		Bids: []types.PriceLevel{{Price: 99.5, Volume: 2}},
		Asks: []types.PriceLevel{{Price: 100.5, Volume: 1}},
	})
	suite.fake.SetBalances(map[string]float64{"BTC": 0.5, "USDT": 1200})

	suite.cache.Subscribe("BTCUSDT")
	suite.cache.refreshOnce(context.Background())

	book := suite.cache.GetOrderBook("BTCUSDT")
	suite.Require().Len(book.Bids, 1)
	suite.Require().InDelta(99.5, book.Bids[0].Price, 1e-9)

	balances := suite.cache.GetBalances()
	suite.Require().InDelta(0.5, balances["BTC"], 1e-9)
	suite.Require().InDelta(1200, balances["USDT"], 1e-9)
}

func (suite *CacheTestSuite) TestOrderStatus() {
	suite.fake.SetStatus(77, types.OrderSnapshot{Status: types.OrderStatusPartiallyFilled})

	ctx := context.Background()
	suite.Require().Equal("PARTIALLY_FILLED", suite.cache.GetOrderStatus(ctx, 77, "BTCUSDT"))
	suite.Require().Equal("REJECTED", suite.cache.GetOrderStatus(ctx, 404, "BTCUSDT"))
}

func (suite *CacheTestSuite) TestUnsubscribeDropsContainers() {
	suite.fake.SetPrice("BTCUSDT", 100)
	suite.cache.SubscribeBars("BTCUSDT", "1m")
	suite.cache.refreshOnce(context.Background())

	suite.cache.Unsubscribe("BTCUSDT")

	suite.Require().InDelta(-1, suite.cache.GetPrice("BTCUSDT"), 1e-9)
	suite.Require().Empty(suite.cache.GetBars("BTCUSDT", "1m"))
}

func (suite *CacheTestSuite) TestStartStop() {
	suite.Require().False(suite.cache.IsRunning())

	suite.cache.Start()
	suite.Require().True(suite.cache.IsRunning())

	suite.cache.Stop()
	suite.Require().False(suite.cache.IsRunning())

	// Stopping again is a no-op.
	suite.cache.Stop()
}

func (suite *CacheTestSuite) TestRefreshHistoryGrowsPerTick() {
	suite.cache.Subscribe("BTCUSDT")

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		suite.fake.SetPrice("BTCUSDT", 100+float64(i))
		suite.cache.refreshOnce(ctx)
	}

	history := suite.cache.GetPriceHistory("BTCUSDT")
	suite.Require().Len(history, 3)
	suite.Require().InDelta(102, history[2], 1e-9)
}

func TestCacheTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CacheTestSuite))
}
