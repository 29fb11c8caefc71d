// Package reconcile is the single ingestion point for everything that
// mutates the order store: poll snapshots, push events and staff
// actions. It enforces status monotonicity: once an order is observed
// further along the lifecycle, nothing moves it back. That is what
// keeps a slow poll response from undoing a faster push.
package reconcile

import (
	"sync"
	"sync/atomic"

	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

// PollSnapshot is a full refresh of one bucket. Token ties it to the
// poller activation that issued it; a snapshot from a dead activation
// is discarded.
type PollSnapshot struct {
	Status models.OrderStatus
	Orders []models.Order
	Token  uint64
}

// OrderUpserted carries a single authoritative order record, from a
// push event or a targeted re-fetch.
type OrderUpserted struct {
	Order models.Order
}

type Reconciler struct {
	store *store.Store
	mylog *logger.Logger

	// mu serializes every mutation, so the read-then-replace in
	// applySnapshot cannot interleave with a concurrent push upsert.
	mu         sync.Mutex
	activation atomic.Uint64
}

func New(st *store.Store, mylog *logger.Logger) *Reconciler {
	return &Reconciler{store: st, mylog: mylog}
}

// Activate starts a new activation epoch and returns its token. Poll
// snapshots carrying an older token are stale and will be dropped.
func (r *Reconciler) Activate() uint64 {
	return r.activation.Add(1)
}

// Invalidate ends the current activation epoch. In-flight refreshes
// resolving afterward are discarded instead of applied.
func (r *Reconciler) Invalidate() {
	r.activation.Add(1)
}

// Apply dispatches one event into the store.
func (r *Reconciler) Apply(requestID string, event any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := event.(type) {
	case PollSnapshot:
		r.applySnapshot(requestID, ev)
	case OrderUpserted:
		r.applyUpsert(requestID, ev.Order)
	default:
		r.mylog.Warn(requestID, "unknown_event", "Dropped event of unknown type")
	}
}

func (r *Reconciler) applySnapshot(requestID string, snap PollSnapshot) {
	if snap.Token != r.activation.Load() {
		r.mylog.Debug(requestID, "stale_snapshot_dropped", "Refresh resolved after deactivation, discarding")
		return
	}

	// A snapshot may still list an order the push channel already moved
	// further along. Keeping it out of the replacement leaves the
	// fresher record where it is. The caller holds r.mu, so no upsert
	// can land between this read and the replace below.
	kept := make([]models.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if current, ok := r.store.Status(o.ID); ok && current.Rank() > snap.Status.Rank() {
			r.mylog.Debug(requestID, "stale_order_skipped", "Snapshot lists an order already further along, keeping local state")
			continue
		}
		kept = append(kept, o)
	}

	r.store.ReplaceBucket(snap.Status, kept)
}

func (r *Reconciler) applyUpsert(requestID string, order models.Order) {
	if !order.Status.Valid() {
		r.mylog.Warn(requestID, "invalid_status_dropped", "Order carried an unknown status, dropping update")
		return
	}
	if current, ok := r.store.Status(order.ID); ok && current.Rank() > order.Status.Rank() {
		r.mylog.Debug(requestID, "regressive_update_skipped", "Update would move an order backward, keeping local state")
		return
	}
	r.store.Upsert(order)
}

// AdvanceLocal performs the optimistic half of a staff action: the
// order moves to status immediately, and the previous record is
// returned so a server rejection can unwind it.
func (r *Reconciler) AdvanceLocal(requestID string, id int64, status models.OrderStatus) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.store.Get(id)
	if !ok {
		return models.Order{}, false
	}
	if status.Rank() <= prev.Status.Rank() {
		return models.Order{}, false
	}

	next := prev
	next.Status = status
	r.store.Upsert(next)
	r.mylog.Debug(requestID, "optimistic_advance", "Order moved locally ahead of server confirmation")
	return prev, true
}

// Revert unwinds an optimistic advance after the server refused it.
func (r *Reconciler) Revert(requestID string, prev models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Upsert(prev)
	r.mylog.Info(requestID, "optimistic_revert", "Server rejected status change, local move reverted")
}
