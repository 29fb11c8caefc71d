package alerts

import (
	"io"
	"testing"

	"kitchen-dashboard/pkg/logger"
)

func TestLatestReplacesPerTag(t *testing.T) {
	m := NewMemory(logger.NewLoggerTo("test", io.Discard))

	m.Report("t", Alert{Tag: "fetch-new", Message: "first"})
	m.Report("t", Alert{Tag: "fetch-new", Message: "second"})
	m.Report("t", Alert{Tag: "new-order", Message: "orders"})

	latest := m.Latest()
	if len(latest) != 2 {
		t.Fatalf("latest = %d alerts, want 2", len(latest))
	}
	for _, a := range latest {
		if a.Tag == "fetch-new" && a.Message != "second" {
			t.Fatalf("tag fetch-new kept %q, want the replacement", a.Message)
		}
		if a.At.IsZero() {
			t.Fatal("timestamp not stamped")
		}
	}
}
