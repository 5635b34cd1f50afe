// Package exec is the venue-facing driver: it drains the order manager's
// queues into the venue and periodically reconciles the local order
// directory against the venue's authoritative open order list.
package exec

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/order"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"go.uber.org/zap"
)

// Default cadences for the poll loop.
const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultReconcileInterval = time.Second
)

// Callbacks holds the reconciliation lifecycle callbacks. All fields are
// optional; nil means no callback is invoked.
type Callbacks struct {
	// OnOrderAppeared is called for each order a reconciliation pass found
	// on the venue that was not in the sent directory before.
	OnOrderAppeared func(o *types.Order)
	// OnOrderVanished is called for each local id no longer open on the
	// venue. Filled and cancelled are indistinguishable without a fill
	// stream; consumers get the id, not a reason.
	OnOrderVanished func(localID int64)
	// OnError is called for dispatch and reconciliation failures.
	OnError func(err error)
}

// Config holds the reconciler cadences.
type Config struct {
	// PollInterval is the dispatch loop cadence.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	// ReconcileInterval is the coarser open-order resync cadence.
	ReconcileInterval time.Duration `json:"reconcile_interval" yaml:"reconcile_interval"`
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = DefaultReconcileInterval
	}

	return c
}

// Reconciler is the single polling worker that owns dispatch and resync.
type Reconciler struct {
	orders    *order.Manager
	venue     venue.Venue
	directory *IDDirectory
	log       *logger.Logger
	config    Config
	callbacks Callbacks

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewReconciler creates a reconciler over the given order manager and venue.
func NewReconciler(orders *order.Manager, v venue.Venue, config Config, callbacks Callbacks, log *logger.Logger) *Reconciler {
	return &Reconciler{
		orders:    orders,
		venue:     v,
		directory: NewIDDirectory(),
		log:       log,
		config:    config.withDefaults(),
		callbacks: callbacks,
		running:   false,
		stop:      nil,
		done:      nil,
	}
}

// Directory exposes the local/remote id directory.
func (r *Reconciler) Directory() *IDDirectory {
	return r.directory
}

// Start launches the poll loop. A second Start without Stop is a no-op.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(r.stop, r.done)
}

// Stop clears the running flag and blocks until the worker finishes its
// current iteration and exits. In-flight venue calls are not interrupted.
func (r *Reconciler) Stop() {
	r.mu.Lock()

	if !r.running {
		r.mu.Unlock()

		return
	}

	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
}

// IsRunning reports whether the poll loop is active.
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running
}

func (r *Reconciler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	pollTicker := time.NewTicker(r.config.PollInterval)
	defer pollTicker.Stop()

	reconcileTicker := time.NewTicker(r.config.ReconcileInterval)
	defer reconcileTicker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		case <-pollTicker.C:
			r.dispatchOnce(ctx)
		case <-reconcileTicker.C:
			r.reconcile(ctx)
		}
	}
}

// dispatchOnce performs one poll iteration: at most one order submission
// and one cancel dispatch. Failures are not retried here; the next poll
// cycle is the only retry mechanism.
func (r *Reconciler) dispatchOnce(ctx context.Context) {
	if r.orders.HasOrders() {
		if o, ok := r.orders.NextOrder(); ok {
			r.submit(ctx, o)
		}
	}

	if r.orders.HasCancels() {
		if intent, ok := r.orders.NextCancel(); ok {
			r.cancel(ctx, intent)
		}
	}
}

func (r *Reconciler) submit(ctx context.Context, o *types.Order) {
	res, err := r.venue.Submit(ctx, o)
	if err != nil {
		r.fail(errors.Wrapf(errors.ErrCodeOrderDispatchFailed, err,
			"failed to dispatch order %d", o.ID))

		return
	}

	if res.RemoteID == 0 {
		// Sessionless degrade: the venue accepted nothing.
		return
	}

	o.RemoteID = res.RemoteID
	o.SubmittedAt = time.Now()

	if err := r.directory.Bind(o.ID, res.RemoteID); err != nil {
		r.fail(err)

		return
	}

	r.orders.ResolveFill(o.ID, res.FilledQty)

	r.log.Debug("order dispatched",
		zap.Int64("local_id", o.ID),
		zap.Int64("remote_id", res.RemoteID),
		zap.Float64("filled_qty", res.FilledQty),
	)
}

func (r *Reconciler) cancel(ctx context.Context, intent types.CancelIntent) {
	remoteID, ok := r.directory.RemoteFor(intent.LocalID)
	if !ok {
		r.fail(errors.Newf(errors.ErrCodeOrderNotBound,
			"cancel target %d has no remote id", intent.LocalID))

		return
	}

	if err := r.venue.Cancel(ctx, remoteID, intent.Symbol); err != nil {
		r.fail(errors.Wrapf(errors.ErrCodeOrderDispatchFailed, err,
			"failed to cancel order %d", intent.LocalID))

		return
	}

	r.log.Debug("cancel dispatched",
		zap.Int64("local_id", intent.LocalID),
		zap.Int64("remote_id", remoteID),
	)
}

// ModifyOrder cancels the old order on the venue and queues the
// replacement. Not atomic: between the cancel and the replacement's
// dispatch there is a window with no live order on the venue. Returns the
// replacement's local id.
func (r *Reconciler) ModifyOrder(ctx context.Context, oldLocalID int64, replacement types.Order) (int64, error) {
	remoteID, ok := r.directory.RemoteFor(oldLocalID)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeOrderNotBound,
			"modify target %d has no remote id", oldLocalID)
	}

	if err := r.venue.Cancel(ctx, remoteID, replacement.Symbol); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeOrderDispatchFailed, err,
			"failed to cancel order %d for modify", oldLocalID)
	}

	return r.orders.CreateOrderFrom(replacement), nil
}

// reconcile resyncs the sent order directory against the venue's open
// order list, one listing per tracked symbol. Venue-originated orders are
// adopted: their remote id doubles as the local id. The fresh snapshot
// replaces the directory wholesale and the diff is surfaced through the
// callbacks.
func (r *Reconciler) reconcile(ctx context.Context) {
	symbols := r.orders.GetSymbols()
	fresh := make(map[int64]*types.Order)

	for _, symbol := range symbols {
		listed, err := r.venue.ListOpenOrders(ctx, optional.Some(symbol))
		if err != nil {
			// A partial snapshot would wrongly mark the other symbols'
			// orders as vanished; keep the previous one.
			r.fail(errors.Wrapf(errors.GetCode(err), err,
				"reconcile aborted: failed to list open orders for %s", symbol))

			return
		}

		for i := range listed {
			o := listed[i]

			localID, ok := r.directory.LocalFor(o.RemoteID)
			if !ok {
				localID = o.RemoteID

				if err := r.directory.Bind(localID, o.RemoteID); err != nil {
					r.fail(err)

					continue
				}

				r.log.Info("adopted venue-originated order",
					zap.Int64("remote_id", o.RemoteID),
					zap.String("symbol", o.Symbol),
				)
			}

			o.ID = localID
			fresh[localID] = &o
		}
	}

	diff := r.orders.UpdateOpenOrders(fresh)

	if r.callbacks.OnOrderAppeared != nil {
		for _, id := range diff.Appeared {
			r.callbacks.OnOrderAppeared(fresh[id])
		}
	}

	if r.callbacks.OnOrderVanished != nil {
		for _, id := range diff.Vanished {
			r.callbacks.OnOrderVanished(id)
		}
	}

	if len(diff.Appeared) > 0 || len(diff.Vanished) > 0 {
		r.log.Debug("reconciled open orders",
			zap.Int("open", len(fresh)),
			zap.Int64s("appeared", diff.Appeared),
			zap.Int64s("vanished", diff.Vanished),
		)
	}
}

func (r *Reconciler) fail(err error) {
	// Venue-classified failures are expected operational conditions;
	// anything else points at a bug in the reconciler itself.
	if errors.IsVenueError(err) {
		r.log.Warn("venue error", zap.Error(err))
	} else {
		r.log.Error("reconciler error", zap.Error(err))
	}

	if r.callbacks.OnError != nil {
		r.callbacks.OnError(err)
	}
}
