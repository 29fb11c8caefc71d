// Package notify watches the new-orders bucket and fires the kitchen
// alert (an audible two-tone chime plus a tagged notification) exactly
// once per net increase. The notifier stays disarmed until the initial
// load has completed; arming records the baseline, so a dashboard
// coming up over an already busy kitchen stays silent even while the
// first refresh lands bucket by bucket.
package notify

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"kitchen-dashboard/internal/alerts"
	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
)

// Player renders the chime. Failures are logged and swallowed; no audio
// problem may ever reach the sync core.
type Player interface {
	Play(wav []byte) error
}

type DeltaNotifier struct {
	player Player
	// sink is nil when system notifications are disabled; the chime is
	// not gated by it.
	sink  alerts.Sink
	mylog *logger.Logger
	chime []byte

	mu       sync.Mutex
	baseline int
	armed    bool
}

func NewDeltaNotifier(player Player, sink alerts.Sink, mylog *logger.Logger) *DeltaNotifier {
	return &DeltaNotifier{
		player: player,
		sink:   sink,
		mylog:  mylog,
		chime:  ChimeWAV(),
	}
}

// Arm releases the notifier once the initial load has completed,
// recording newCount as the baseline. Until then Observe discards
// everything, so the buckets of a first refresh can land in any order
// without sounding an alarm for orders that were already there.
func (n *DeltaNotifier) Arm(newCount int) {
	n.mu.Lock()
	n.baseline = newCount
	n.armed = true
	n.mu.Unlock()
}

// Observe is the store subscription callback.
func (n *DeltaNotifier) Observe(snap store.Snapshot) {
	count := len(snap.New)

	n.mu.Lock()
	if !n.armed {
		n.mu.Unlock()
		return
	}

	delta := count - n.baseline
	n.baseline = count
	n.mu.Unlock()

	// One alert per observation step, whatever the delta; decreases
	// (orders advanced out of the bucket) pass silently.
	if delta > 0 {
		n.fire(delta)
	}
}

func (n *DeltaNotifier) fire(delta int) {
	requestID := "notif-" + uuid.NewString()
	n.mylog.Info(requestID, "new_orders_detected", fmt.Sprintf("%d new order(s) arrived", delta))

	if n.player != nil {
		if err := n.player.Play(n.chime); err != nil {
			n.mylog.Error(requestID, "chime_failed", "Could not play notification chime", err)
		}
	}

	if n.sink != nil {
		n.sink.Report(requestID, alerts.Alert{
			Tag:     "new-order",
			Message: fmt.Sprintf("You have %d new order(s)", delta),
		})
	}
}
