package pushchannel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kitchen-dashboard/internal/reconcile"
	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

type fakeFetcher struct {
	mu     sync.Mutex
	orders map[int64]models.Order
	err    error
	calls  int
}

func (f *fakeFetcher) FetchOrder(ctx context.Context, id int64) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Order{}, f.err
	}
	return f.orders[id], nil
}

// kitchenFeed is a minimal server side of the push contract: it records
// join frames and hands each accepted connection to the test.
type kitchenFeed struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	joins []frame
	conns chan *websocket.Conn
}

func newKitchenFeed() *kitchenFeed {
	return &kitchenFeed{conns: make(chan *websocket.Conn, 4)}
}

func (k *kitchenFeed) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := k.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	var join frame
	if err := conn.ReadJSON(&join); err != nil {
		conn.Close()
		return
	}
	k.mu.Lock()
	k.joins = append(k.joins, join)
	k.mu.Unlock()
	k.conns <- conn
}

func (k *kitchenFeed) joinCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.joins)
}

func newHarness(t *testing.T, fetcher *fakeFetcher) (*Channel, *store.Store, *kitchenFeed) {
	t.Helper()
	feed := newKitchenFeed()
	srv := httptest.NewServer(http.HandlerFunc(feed.handler))
	t.Cleanup(srv.Close)

	mylog := logger.NewLoggerTo("test", io.Discard)
	st := store.New()
	rec := reconcile.New(st, mylog)

	ch := New(srv.URL, "test-token", 1, rec, fetcher, mylog, 3, 10*time.Millisecond)
	return ch, st, feed
}

func awaitConn(t *testing.T, feed *kitchenFeed) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-feed.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("channel never connected")
		return nil
	}
}

func send(t *testing.T, conn *websocket.Conn, event string, restaurantID int64, order models.Order) {
	t.Helper()
	raw, _ := json.Marshal(order)
	if err := conn.WriteJSON(frame{Event: event, Order: raw, RestaurantID: restaurantID}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestJoinsKitchenRoomOnConnect(t *testing.T) {
	ch, _, feed := newHarness(t, &fakeFetcher{})
	ch.Start(context.Background())
	defer ch.Stop()

	awaitConn(t, feed)
	if feed.joinCount() != 1 {
		t.Fatalf("joins = %d, want 1", feed.joinCount())
	}
	feed.mu.Lock()
	join := feed.joins[0]
	feed.mu.Unlock()
	if join.Event != "join-kitchen" || join.RestaurantID != 1 {
		t.Fatalf("join frame = %+v", join)
	}
}

func TestNewOrderEventUpserts(t *testing.T) {
	ch, st, feed := newHarness(t, &fakeFetcher{})
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	send(t, conn, eventNewOrder, 1, models.Order{ID: 42, Status: models.StatusNew})

	waitFor(t, func() bool { return st.NewCount() == 1 })

	// The same event again must not duplicate the order.
	send(t, conn, eventNewOrder, 1, models.Order{ID: 42, Status: models.StatusNew})
	send(t, conn, eventNewOrder, 1, models.Order{ID: 43, Status: models.StatusNew})
	waitFor(t, func() bool { return st.NewCount() == 2 })
}

func TestOtherRestaurantIsFiltered(t *testing.T) {
	ch, st, feed := newHarness(t, &fakeFetcher{})
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	send(t, conn, eventNewOrder, 2, models.Order{ID: 50, Status: models.StatusNew})
	send(t, conn, eventNewOrder, 1, models.Order{ID: 51, Status: models.StatusNew})

	waitFor(t, func() bool { return st.NewCount() == 1 })
	if _, ok := st.Status(50); ok {
		t.Fatal("event for another restaurant was applied")
	}
}

func TestStatusUpdatedRefetchesAuthoritativeRecord(t *testing.T) {
	fetcher := &fakeFetcher{orders: map[int64]models.Order{
		7: {ID: 7, Status: models.StatusDelivered, TotalAmount: 99.5},
	}}
	ch, st, feed := newHarness(t, fetcher)
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	// The pushed payload carries a stale total; the re-fetch must win.
	send(t, conn, eventStatusUpdated, 1, models.Order{ID: 7, Status: models.StatusDelivered, TotalAmount: 10})

	waitFor(t, func() bool {
		o, ok := st.Get(7)
		return ok && o.TotalAmount == 99.5
	})
}

func TestStatusUpdatedFallsBackToPayload(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("unreachable")}
	ch, st, feed := newHarness(t, fetcher)
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	send(t, conn, eventStatusUpdated, 1, models.Order{ID: 8, Status: models.StatusPreparing})

	waitFor(t, func() bool {
		status, ok := st.Status(8)
		return ok && status == models.StatusPreparing
	})
}

func TestMalformedFrameDoesNotKillTheLoop(t *testing.T) {
	ch, st, feed := newHarness(t, &fakeFetcher{})
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, eventNewOrder, 1, models.Order{ID: 60, Status: models.StatusNew})

	waitFor(t, func() bool { return st.NewCount() == 1 })
}

func TestRejoinsAfterDisconnect(t *testing.T) {
	ch, _, feed := newHarness(t, &fakeFetcher{})
	ch.Start(context.Background())
	defer ch.Stop()

	conn := awaitConn(t, feed)
	conn.Close()

	waitFor(t, func() bool { return feed.joinCount() >= 2 })
	awaitConn(t, feed)
}

// A channel that was built but never started must still be stoppable;
// shutdown paths call Stop unconditionally.
func TestStopWithoutStartReturns(t *testing.T) {
	ch, _, _ := newHarness(t, &fakeFetcher{})

	done := make(chan struct{})
	go func() {
		ch.Stop()
		ch.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked without a prior Start")
	}
}

func TestWSURLDerivation(t *testing.T) {
	cases := map[string]string{
		"http://api.local:5000": "ws://api.local:5000/ws/kitchen",
		"https://api.local/":    "wss://api.local/ws/kitchen",
	}
	for in, want := range cases {
		if got := wsURL(in); got != want {
			t.Errorf("wsURL(%q) = %q, want %q", in, got, want)
		}
	}
}
