// Package store is the single mutable source the dashboard renders
// from: three status buckets keyed by order id. Every order id lives in
// exactly one bucket at any time; insertion into a bucket is always
// preceded by removal from all of them.
package store

import (
	"sync"

	"kitchen-dashboard/pkg/models"
)

// Snapshot is a read-only copy of the three buckets.
type Snapshot struct {
	New       []models.Order `json:"new"`
	Preparing []models.Order `json:"preparing"`
	Delivered []models.Order `json:"delivered"`
}

type Store struct {
	mu      sync.Mutex
	buckets map[models.OrderStatus][]models.Order
	// index tracks which bucket currently holds each order id.
	index map[int64]models.OrderStatus

	// dispatchMu serializes subscriber fan-out so callbacks observe
	// snapshots in mutation order.
	dispatchMu  sync.Mutex
	subscribers []func(Snapshot)
}

func New() *Store {
	return &Store{
		buckets: map[models.OrderStatus][]models.Order{
			models.StatusNew:       {},
			models.StatusPreparing: {},
			models.StatusDelivered: {},
		},
		index: make(map[int64]models.OrderStatus),
	}
}

// Subscribe registers fn to run after every mutation with a fresh
// snapshot. Callbacks run serially on the mutating goroutine, in
// mutation order, and must work from the snapshot alone: calling back
// into the store from fn deadlocks.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// ReplaceBucket swaps the full contents of one bucket, preserving the
// given order. Orders held by other buckets are pulled out first so the
// one-bucket invariant survives a server-side status change arriving via
// a snapshot.
func (s *Store) ReplaceBucket(status models.OrderStatus, orders []models.Order) {
	s.mu.Lock()
	for _, o := range s.buckets[status] {
		delete(s.index, o.ID)
	}
	s.buckets[status] = s.buckets[status][:0]

	for _, o := range orders {
		s.removeLocked(o.ID)
		o.Status = status
		s.buckets[status] = append(s.buckets[status], normalizeItems(o))
		s.index[o.ID] = status
	}
	s.notifyLocked()
}

// Upsert moves the order into the bucket matching its status. New
// orders land at the front of the new bucket so the freshest ticket is
// on top; other buckets append.
func (s *Store) Upsert(order models.Order) {
	s.mu.Lock()
	s.removeLocked(order.ID)

	order = normalizeItems(order)
	if order.Status == models.StatusNew {
		s.buckets[order.Status] = append([]models.Order{order}, s.buckets[order.Status]...)
	} else {
		s.buckets[order.Status] = append(s.buckets[order.Status], order)
	}
	s.index[order.ID] = order.Status
	s.notifyLocked()
}

// Remove drops the order from whatever bucket holds it. Used when an
// optimistic move has to be unwound to a prior state via Upsert, or not
// at all.
func (s *Store) Remove(id int64) {
	s.mu.Lock()
	s.removeLocked(id)
	s.notifyLocked()
}

// Get returns the canonical record for an order id, if the store holds one.
func (s *Store) Get(id int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.index[id]
	if !ok {
		return models.Order{}, false
	}
	for _, o := range s.buckets[status] {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// Status reports which bucket holds the order id.
func (s *Store) Status(id int64) (models.OrderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.index[id]
	return status, ok
}

func (s *Store) NewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[models.StatusNew])
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		New:       append([]models.Order{}, s.buckets[models.StatusNew]...),
		Preparing: append([]models.Order{}, s.buckets[models.StatusPreparing]...),
		Delivered: append([]models.Order{}, s.buckets[models.StatusDelivered]...),
	}
}

func (s *Store) removeLocked(id int64) {
	status, ok := s.index[id]
	if !ok {
		return
	}
	bucket := s.buckets[status]
	for i, o := range bucket {
		if o.ID == id {
			s.buckets[status] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(s.index, id)
}

// notifyLocked releases the state lock, then fans the snapshot out.
// The dispatch lock is taken before the state lock is released so two
// mutations cannot deliver their snapshots in the wrong order. See the
// Subscribe contract: callbacks must not touch the store.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	subs := append([]func(Snapshot){}, s.subscribers...)
	s.dispatchMu.Lock()
	s.mu.Unlock()
	defer s.dispatchMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func normalizeItems(o models.Order) models.Order {
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	return o
}
