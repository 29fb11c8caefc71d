package reconcile

import (
	"io"
	"reflect"
	"sync"
	"testing"

	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

func newReconciler() (*Reconciler, *store.Store) {
	st := store.New()
	return New(st, logger.NewLoggerTo("test", io.Discard)), st
}

func order(id int64, status models.OrderStatus) models.Order {
	return models.Order{ID: id, Status: status, Items: []models.OrderItem{}}
}

func TestSnapshotPopulatesBucket(t *testing.T) {
	rec, st := newReconciler()
	token := rec.Activate()

	rec.Apply("t", PollSnapshot{
		Status: models.StatusNew,
		Orders: []models.Order{order(1, models.StatusNew), order(2, models.StatusNew)},
		Token:  token,
	})

	if got := st.NewCount(); got != 2 {
		t.Fatalf("NewCount = %d, want 2", got)
	}
}

func TestStalePollDoesNotRegressPushedOrder(t *testing.T) {
	rec, st := newReconciler()
	token := rec.Activate()

	// Push already delivered order 7.
	rec.Apply("t", OrderUpserted{Order: order(7, models.StatusDelivered)})

	// A slower poll for the new bucket still lists it as new.
	rec.Apply("t", PollSnapshot{
		Status: models.StatusNew,
		Orders: []models.Order{order(7, models.StatusNew), order(8, models.StatusNew)},
		Token:  token,
	})

	status, ok := st.Status(7)
	if !ok || status != models.StatusDelivered {
		t.Fatalf("order 7 status = %s (held=%v), want delivered", status, ok)
	}
	if got := st.NewCount(); got != 1 {
		t.Fatalf("NewCount = %d, want 1 (only order 8)", got)
	}
}

// A delivered push racing a poll snapshot that still lists the order as
// new must never leave it in the new bucket, whichever side wins the
// race to apply first.
func TestConcurrentPushNeverClobberedBySnapshot(t *testing.T) {
	for i := 0; i < 500; i++ {
		rec, st := newReconciler()
		token := rec.Activate()

		snapshot := []models.Order{order(7, models.StatusNew)}
		for j := int64(0); j < 20; j++ {
			snapshot = append(snapshot, order(100+j, models.StatusNew))
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			rec.Apply("poll", PollSnapshot{Status: models.StatusNew, Orders: snapshot, Token: token})
		}()
		go func() {
			defer wg.Done()
			rec.Apply("push", OrderUpserted{Order: order(7, models.StatusDelivered)})
		}()
		wg.Wait()

		status, ok := st.Status(7)
		if !ok || status != models.StatusDelivered {
			t.Fatalf("iteration %d: order 7 ended %q (held=%v) after a delivered push", i, status, ok)
		}
	}
}

func TestSnapshotAfterInvalidateIsDiscarded(t *testing.T) {
	rec, st := newReconciler()
	token := rec.Activate()
	rec.Invalidate()

	rec.Apply("t", PollSnapshot{
		Status: models.StatusNew,
		Orders: []models.Order{order(1, models.StatusNew)},
		Token:  token,
	})

	if got := st.NewCount(); got != 0 {
		t.Fatalf("stale snapshot was applied, NewCount = %d", got)
	}
}

func TestDuplicatePushIsIdempotent(t *testing.T) {
	rec, st := newReconciler()

	rec.Apply("t", OrderUpserted{Order: order(5, models.StatusNew)})
	before := st.Snapshot()

	rec.Apply("t", OrderUpserted{Order: order(5, models.StatusNew)})
	after := st.Snapshot()

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("second identical push changed the store: %+v != %+v", before, after)
	}
}

func TestRegressivePushIsIgnored(t *testing.T) {
	rec, st := newReconciler()

	rec.Apply("t", OrderUpserted{Order: order(3, models.StatusDelivered)})
	rec.Apply("t", OrderUpserted{Order: order(3, models.StatusPreparing)})

	if status, _ := st.Status(3); status != models.StatusDelivered {
		t.Fatalf("order 3 regressed to %s", status)
	}
}

func TestInvalidStatusIsDropped(t *testing.T) {
	rec, st := newReconciler()

	rec.Apply("t", OrderUpserted{Order: order(9, models.OrderStatus("cancelled"))})

	if _, ok := st.Status(9); ok {
		t.Fatal("order with unknown status must not enter the store")
	}
}

func TestAdvanceLocalAndRevert(t *testing.T) {
	rec, st := newReconciler()
	rec.Apply("t", OrderUpserted{Order: order(4, models.StatusNew)})

	prev, ok := rec.AdvanceLocal("t", 4, models.StatusPreparing)
	if !ok {
		t.Fatal("AdvanceLocal refused a valid forward move")
	}
	if status, _ := st.Status(4); status != models.StatusPreparing {
		t.Fatalf("order 4 status after advance = %s", status)
	}

	rec.Revert("t", prev)
	if status, _ := st.Status(4); status != models.StatusNew {
		t.Fatalf("order 4 status after revert = %s, want new", status)
	}
}

func TestAdvanceLocalRefusesBackwardMove(t *testing.T) {
	rec, _ := newReconciler()
	rec.Apply("t", OrderUpserted{Order: order(4, models.StatusDelivered)})

	if _, ok := rec.AdvanceLocal("t", 4, models.StatusNew); ok {
		t.Fatal("AdvanceLocal allowed a backward move")
	}
	if _, ok := rec.AdvanceLocal("t", 99, models.StatusPreparing); ok {
		t.Fatal("AdvanceLocal allowed advancing an unknown order")
	}
}

func TestDeliveredNeverRevertsAcrossInterleavings(t *testing.T) {
	rec, st := newReconciler()
	token := rec.Activate()

	rec.Apply("t", PollSnapshot{Status: models.StatusNew, Orders: []models.Order{order(1, models.StatusNew)}, Token: token})
	rec.Apply("t", OrderUpserted{Order: order(1, models.StatusPreparing)})
	rec.Apply("t", OrderUpserted{Order: order(1, models.StatusDelivered)})

	// Stale refreshes for both earlier buckets.
	rec.Apply("t", PollSnapshot{Status: models.StatusNew, Orders: []models.Order{order(1, models.StatusNew)}, Token: token})
	rec.Apply("t", PollSnapshot{Status: models.StatusPreparing, Orders: []models.Order{order(1, models.StatusPreparing)}, Token: token})

	if status, _ := st.Status(1); status != models.StatusDelivered {
		t.Fatalf("order 1 ended as %s, want delivered", status)
	}
}
