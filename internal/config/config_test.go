package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KITCHEN_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Fatalf("APIBaseURL = %s", cfg.APIBaseURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.ReconnectAttempts != 10 || cfg.ReconnectDelay != time.Second {
		t.Fatalf("reconnect settings = %d/%s", cfg.ReconnectAttempts, cfg.ReconnectDelay)
	}
	if !cfg.PreparingEnabled || !cfg.SystemNotifications {
		t.Fatal("feature toggles should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KITCHEN_TOKEN", "tok")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("PREPARING_ENABLED", "false")
	t.Setenv("RESTAURANT_ID", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 5*time.Second || cfg.PreparingEnabled || cfg.RestaurantID != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("KITCHEN_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without KITCHEN_TOKEN")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("KITCHEN_TOKEN", "tok")
	t.Setenv("POLL_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unparseable interval")
	}
}

// A zero or negative interval would blow up the poll ticker, so Load
// has to refuse it instead of handing it onward.
func TestLoadRejectsNonPositiveIntervals(t *testing.T) {
	for _, interval := range []string{"0s", "-5s"} {
		t.Setenv("KITCHEN_TOKEN", "tok")
		t.Setenv("POLL_INTERVAL", interval)

		if _, err := Load(); err == nil {
			t.Fatalf("expected an error for POLL_INTERVAL=%s", interval)
		}
	}

	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("WS_RECONNECT_DELAY", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a zero reconnect delay")
	}
}
