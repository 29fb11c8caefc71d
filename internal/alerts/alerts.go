// Package alerts is the sink fetch errors and notifications are
// reported through. The daemon's equivalent of the dashboard's toast
// layer: alerts are logged and the latest one per tag is kept for the
// thin client to poll.
package alerts

import (
	"sync"
	"time"

	"kitchen-dashboard/pkg/logger"
)

type Alert struct {
	Tag     string    `json:"tag"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

type Sink interface {
	Report(requestID string, alert Alert)
}

// Memory logs every alert and remembers the most recent one per tag; a
// repeated tag replaces the previous alert rather than stacking.
type Memory struct {
	mylog *logger.Logger

	mu     sync.Mutex
	latest map[string]Alert
}

func NewMemory(mylog *logger.Logger) *Memory {
	return &Memory{
		mylog:  mylog,
		latest: make(map[string]Alert),
	}
}

func (m *Memory) Report(requestID string, alert Alert) {
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}

	m.mylog.Warn(requestID, "alert_"+alert.Tag, alert.Message)

	m.mu.Lock()
	m.latest[alert.Tag] = alert
	m.mu.Unlock()
}

// Latest returns the current alert per tag.
func (m *Memory) Latest() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.latest))
	for _, a := range m.latest {
		out = append(out, a)
	}
	return out
}
