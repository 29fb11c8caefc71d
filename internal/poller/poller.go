// Package poller drives the periodic full refresh: one immediate pass
// on start, then a fixed cadence. At most one refresh is in flight at a
// time; a tick firing while one is running is skipped so stale responses
// can never be applied out of order.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kitchen-dashboard/internal/alerts"
	"kitchen-dashboard/internal/reconcile"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

type Fetcher interface {
	FetchOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
}

type Poller struct {
	fetcher  Fetcher
	rec      *reconcile.Reconciler
	sink     alerts.Sink
	mylog    *logger.Logger
	interval time.Duration
	buckets  []models.OrderStatus

	token     uint64
	inFlight  atomic.Bool
	firstDone chan struct{}
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func New(fetcher Fetcher, rec *reconcile.Reconciler, sink alerts.Sink, mylog *logger.Logger, interval time.Duration, preparingEnabled bool) *Poller {
	buckets := []models.OrderStatus{models.StatusNew, models.StatusDelivered}
	if preparingEnabled {
		buckets = append(buckets, models.StatusPreparing)
	}
	return &Poller{
		fetcher:   fetcher,
		rec:       rec,
		sink:      sink,
		mylog:     mylog,
		interval:  interval,
		buckets:   buckets,
		firstDone: make(chan struct{}),
		stopChan:  make(chan struct{}),
	}
}

// Start refreshes once immediately, then keeps refreshing on the
// configured interval until Stop or ctx cancellation.
func (p *Poller) Start(ctx context.Context) {
	p.token = p.rec.Activate()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.refresh(ctx)
		close(p.firstDone)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopChan:
				return
			case <-ticker.C:
				p.refresh(ctx)
			}
		}
	}()
}

// FirstRefreshDone is closed once the initial refresh has finished and
// every bucket it could fetch has been applied. Consumers that must not
// react to the initial load, like the delta notifier, wait on it.
func (p *Poller) FirstRefreshDone() <-chan struct{} {
	return p.firstDone
}

// Stop cancels the ticker and invalidates the activation so a refresh
// still in flight is discarded instead of applied.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.rec.Invalidate()
	p.wg.Wait()
}

// RefreshNow runs one refresh outside the cadence, subject to the same
// overlap rule.
func (p *Poller) RefreshNow(ctx context.Context) {
	p.refresh(ctx)
}

func (p *Poller) refresh(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.mylog.Debug("", "tick_skipped", "Previous refresh still in flight")
		return
	}
	defer p.inFlight.Store(false)

	requestID := "poll-" + uuid.NewString()
	p.mylog.Debug(requestID, "refresh_started", "Refreshing all order buckets")

	var wg sync.WaitGroup
	for _, status := range p.buckets {
		wg.Add(1)
		go func(status models.OrderStatus) {
			defer wg.Done()
			p.refreshBucket(ctx, requestID, status)
		}(status)
	}
	wg.Wait()
}

// refreshBucket fetches one bucket and hands the snapshot to the
// reconciler. A failed bucket is reported and left alone; the others
// proceed, and the next tick retries.
func (p *Poller) refreshBucket(ctx context.Context, requestID string, status models.OrderStatus) {
	orders, err := p.fetcher.FetchOrders(ctx, status)
	if err != nil {
		p.mylog.Error(requestID, "bucket_refresh_failed", "Failed to fetch "+string(status)+" orders", err)
		p.sink.Report(requestID, alerts.Alert{
			Tag:     "fetch-" + string(status),
			Message: "Failed to refresh " + string(status) + " orders",
			Detail:  err.Error(),
		})
		return
	}

	p.rec.Apply(requestID, reconcile.PollSnapshot{
		Status: status,
		Orders: orders,
		Token:  p.token,
	})
}
