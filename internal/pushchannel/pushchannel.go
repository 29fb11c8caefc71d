// Package pushchannel keeps one websocket open against the order
// backend's kitchen feed. It joins the restaurant's kitchen room on
// every (re)connect, filters incoming events by restaurant, and feeds
// them to the reconciler. When the reconnect budget is exhausted the
// channel goes quiet and polling remains the sole source of truth.
package pushchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kitchen-dashboard/internal/gateway"
	"kitchen-dashboard/internal/reconcile"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

const (
	eventJoinKitchen   = "join-kitchen"
	eventNewOrder      = "new-order"
	eventStatusUpdated = "order-status-updated"
)

type OrderFetcher interface {
	FetchOrder(ctx context.Context, id int64) (models.Order, error)
}

type frame struct {
	Event        string          `json:"event"`
	Order        json.RawMessage `json:"order,omitempty"`
	RestaurantID int64           `json:"restaurantId,omitempty"`
}

type Channel struct {
	url          string
	token        string
	restaurantID int64
	rec          *reconcile.Reconciler
	fetcher      OrderFetcher
	mylog        *logger.Logger

	attempts int
	delay    time.Duration
	dialer   *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	started  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func New(apiBaseURL, token string, restaurantID int64, rec *reconcile.Reconciler, fetcher OrderFetcher, mylog *logger.Logger, attempts int, delay time.Duration) *Channel {
	return &Channel{
		url:          wsURL(apiBaseURL),
		token:        token,
		restaurantID: restaurantID,
		rec:          rec,
		fetcher:      fetcher,
		mylog:        mylog,
		attempts:     attempts,
		delay:        delay,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// The push feed lives on the same origin as the REST API.
func wsURL(apiBaseURL string) string {
	u := strings.TrimSuffix(apiBaseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/kitchen"
}

// Start runs the connect/read/reconnect loop in the background. Only
// the first call starts the loop.
func (c *Channel) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
}

// Stop closes the connection and waits for the loop to exit. Safe to
// call without a prior Start, and idempotent.
func (c *Channel) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	if c.started.Load() {
		<-c.done
	}
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		default:
		}

		requestID := "ws-" + uuid.NewString()
		conn, err := c.connect(ctx, requestID)
		if err != nil {
			failures++
			if failures >= c.attempts {
				// Graceful degradation: polling carries on alone.
				c.mylog.Warn(requestID, "channel_degraded", fmt.Sprintf("Giving up after %d failed connection attempts, relying on polling", failures))
				return
			}
			c.mylog.Debug(requestID, "reconnect_scheduled", "Connection failed, retrying after fixed delay")
			select {
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			case <-time.After(c.delay):
			}
			continue
		}

		failures = 0
		c.readLoop(ctx, requestID, conn)

		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-time.After(c.delay):
		}
	}
}

func (c *Channel) connect(ctx context.Context, requestID string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	// The room join is repeated on every reconnect; the server scopes
	// this connection to our restaurant's kitchen from here on.
	join := frame{Event: eventJoinKitchen, RestaurantID: c.restaurantID}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join kitchen room: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.mylog.Info(requestID, "channel_connected", fmt.Sprintf("Joined kitchen room for restaurant %d", c.restaurantID))
	return conn, nil
}

func (c *Channel) readLoop(ctx context.Context, requestID string, conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopChan:
			default:
				c.mylog.Debug(requestID, "channel_disconnected", "Read failed, will reconnect")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.mylog.Warn(requestID, "frame_unparseable", "Dropped a frame that did not parse")
			continue
		}
		c.handleFrame(ctx, f)
	}
}

func (c *Channel) handleFrame(ctx context.Context, f frame) {
	requestID := "ev-" + uuid.NewString()

	switch f.Event {
	case eventNewOrder, eventStatusUpdated:
	default:
		c.mylog.Debug(requestID, "event_ignored", "Unknown event "+f.Event)
		return
	}

	// Events for other restaurants share the feed on some backends.
	if f.RestaurantID != c.restaurantID {
		c.mylog.Debug(requestID, "event_filtered", "Event belongs to another restaurant")
		return
	}

	order, err := gateway.DecodeOrder(f.Order)
	if err != nil {
		c.mylog.Warn(requestID, "event_unparseable", "Event carried no usable order payload")
		return
	}

	switch f.Event {
	case eventNewOrder:
		c.mylog.Info(requestID, "new_order_received", fmt.Sprintf("Order %d pushed by server", order.ID))
		c.rec.Apply(requestID, reconcile.OrderUpserted{Order: order})

	case eventStatusUpdated:
		// The pushed payload may predate server-side recomputation of
		// totals; fetch the authoritative record and fall back to the
		// payload only if the fetch fails.
		fetched, err := c.fetcher.FetchOrder(ctx, order.ID)
		if err != nil {
			c.mylog.Warn(requestID, "refetch_failed", fmt.Sprintf("Falling back to pushed payload for order %d", order.ID))
			fetched = order
		}
		c.rec.Apply(requestID, reconcile.OrderUpserted{Order: fetched})
	}
}
