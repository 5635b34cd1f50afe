package exec

import (
	"context"
	"testing"

	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/order"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue/venuetest"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ReconcilerTestSuite struct {
	suite.Suite
	orders     *order.Manager
	fake       *venuetest.FakeVenue
	reconciler *Reconciler

	appeared []int64
	vanished []int64
	errs     []error
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (suite *ReconcilerTestSuite) SetupTest() {
	suite.orders = order.NewManager(logger.NewNopLogger())
	suite.fake = venuetest.NewFakeVenue()
	suite.appeared = nil
	suite.vanished = nil
	suite.errs = nil

	callbacks := Callbacks{
		OnOrderAppeared: func(o *types.Order) { suite.appeared = append(suite.appeared, o.ID) },
		OnOrderVanished: func(localID int64) { suite.vanished = append(suite.vanished, localID) },
		OnError:         func(err error) { suite.errs = append(suite.errs, err) },
	}

	suite.reconciler = NewReconciler(suite.orders, suite.fake, Config{}, callbacks, logger.NewNopLogger())
}

func (suite *ReconcilerTestSuite) TestDispatchBindsRemoteIdAndResolvesFill() {
	suite.fake.SetFillQty(0.25)

	id := suite.orders.CreateOrder(types.OrderTypeMarket, types.SideBuy, "BTCUSDT", 0.25, 0)

	suite.reconciler.dispatchOnce(context.Background())

	o, ok := suite.orders.GetOrderByID(id)
	suite.True(ok)
	suite.Equal(int64(1000), o.RemoteID)
	suite.False(o.SubmittedAt.IsZero())

	remote, ok := suite.reconciler.Directory().RemoteFor(id)
	suite.True(ok)
	suite.Equal(int64(1000), remote)

	local, ok := suite.reconciler.Directory().LocalFor(1000)
	suite.True(ok)
	suite.Equal(id, local)

	suite.Equal(0.25, <-suite.orders.FillResult(id))
}

func (suite *ReconcilerTestSuite) TestDispatchClaimsOrdersInCreationOrder() {
	first := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideBuy, "BTCUSDT", 1, 100)
	second := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideSell, "BTCUSDT", 2, 200)

	suite.reconciler.dispatchOnce(context.Background())
	suite.reconciler.dispatchOnce(context.Background())

	submitted := suite.fake.Submitted()
	suite.Len(submitted, 2)
	suite.Equal(first, submitted[0].ID)
	suite.Equal(second, submitted[1].ID)
}

func (suite *ReconcilerTestSuite) TestDispatchFailureIsReportedNotRetried() {
	suite.fake.SubmitErr = errors.New(errors.ErrCodeVenueTransient, "venue down")

	suite.orders.CreateOrder(types.OrderTypeMarket, types.SideBuy, "BTCUSDT", 1, 0)

	suite.reconciler.dispatchOnce(context.Background())

	suite.Len(suite.errs, 1)
	suite.True(errors.HasCode(suite.errs[0], errors.ErrCodeOrderDispatchFailed))
	suite.Empty(suite.fake.Submitted())

	// Nothing left queued: the next poll retries only what reconciliation
	// or the caller requeues.
	suite.False(suite.orders.HasOrders())
}

func (suite *ReconcilerTestSuite) TestCancelResolvesRemoteIdThroughDirectory() {
	id := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideBuy, "BTCUSDT", 1, 100)
	suite.reconciler.dispatchOnce(context.Background())

	suite.orders.CancelOrder(id, "BTCUSDT")
	suite.reconciler.dispatchOnce(context.Background())

	cancelled := suite.fake.Cancelled()
	suite.Len(cancelled, 1)
	suite.Equal(int64(1000), cancelled[0].RemoteID)
	suite.Equal("BTCUSDT", cancelled[0].Symbol)
}

func (suite *ReconcilerTestSuite) TestCancelUnboundOrderReportsError() {
	suite.orders.CancelOrder(99, "BTCUSDT")
	suite.reconciler.dispatchOnce(context.Background())

	suite.Len(suite.errs, 1)
	suite.True(errors.HasCode(suite.errs[0], errors.ErrCodeOrderNotBound))
	suite.Empty(suite.fake.Cancelled())
}

func (suite *ReconcilerTestSuite) TestReconcileReplacesSnapshotAndKeepsBijection() {
	id := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideBuy, "BTCUSDT", 1, 100)
	suite.reconciler.dispatchOnce(context.Background())

	// Venue still reports our order open, plus one order placed outside
	// this process.
	suite.fake.SetOpenOrders([]types.Order{
		{Symbol: "BTCUSDT", Side: types.SideBuy, Type: types.OrderTypeLimit, Quantity: 1, Price: 100, RemoteID: 1000},
		{Symbol: "BTCUSDT", Side: types.SideSell, Type: types.OrderTypeLimit, Quantity: 2, Price: 200, RemoteID: 7777},
	})

	suite.reconciler.reconcile(context.Background())

	// Known remote id resolves to the existing local id.
	tracked, ok := suite.orders.GetOrderByID(id)
	suite.True(ok)
	suite.Equal(int64(1000), tracked.RemoteID)

	// The foreign order is adopted with its remote id as local id.
	adopted, ok := suite.orders.GetOrderByID(7777)
	suite.True(ok)
	suite.Equal(int64(7777), adopted.RemoteID)
	suite.Equal([]int64{7777}, suite.appeared)

	local, ok := suite.reconciler.Directory().LocalFor(7777)
	suite.True(ok)
	suite.Equal(int64(7777), local)

	// Bijection: every local id maps to a distinct remote id.
	seen := map[int64]int64{}

	for _, localID := range []int64{id, 7777} {
		remote, ok := suite.reconciler.Directory().RemoteFor(localID)
		suite.True(ok)

		_, dup := seen[remote]
		suite.False(dup)
		seen[remote] = localID
	}
}

func (suite *ReconcilerTestSuite) TestReconcileReportsVanishedOrders() {
	id := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideBuy, "BTCUSDT", 1, 100)
	suite.reconciler.dispatchOnce(context.Background())

	// The venue no longer lists the order: filled or cancelled.
	suite.fake.SetOpenOrders(nil)
	suite.reconciler.reconcile(context.Background())

	suite.Equal([]int64{id}, suite.vanished)

	_, ok := suite.orders.GetOrderByID(id)
	suite.False(ok)
}

func (suite *ReconcilerTestSuite) TestModifyOrderCancelsThenRequeues() {
	id := suite.orders.CreateOrder(types.OrderTypeLimit, types.SideBuy, "BTCUSDT", 1, 100)
	suite.reconciler.dispatchOnce(context.Background())

	newID, err := suite.reconciler.ModifyOrder(context.Background(), id, types.Order{
		Symbol:   "BTCUSDT",
		Side:     types.SideBuy,
		Type:     types.OrderTypeLimit,
		Quantity: 1,
		Price:    150,
	})
	suite.NoError(err)
	suite.Greater(newID, id)

	suite.Len(suite.fake.Cancelled(), 1)

	// Replacement waits in the queue for the next poll.
	suite.True(suite.orders.HasOrders())
	suite.reconciler.dispatchOnce(context.Background())

	submitted := suite.fake.Submitted()
	suite.Len(submitted, 2)
	suite.Equal(150.0, submitted[1].Price)
}

func (suite *ReconcilerTestSuite) TestStartStop() {
	suite.reconciler.Start()
	suite.True(suite.reconciler.IsRunning())

	suite.reconciler.Stop()
	suite.False(suite.reconciler.IsRunning())

	// Stop on a stopped reconciler is a no-op.
	suite.reconciler.Stop()
}
