package binance

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	var zero Config
	got := zero.withDefaults()
	if got.Limit != 500 {
		t.Errorf("limit = %d, want 500", got.Limit)
	}
	if got.TimeoutSeconds != 15 {
		t.Errorf("timeout = %d, want 15", got.TimeoutSeconds)
	}

	over := Config{Limit: maxHistoryLimit + 1, TimeoutSeconds: 30}
	got = over.withDefaults()
	if got.Limit != 500 {
		t.Errorf("over-limit not clamped: %d", got.Limit)
	}
	if got.TimeoutSeconds != 30 {
		t.Errorf("explicit timeout overridden: %d", got.TimeoutSeconds)
	}
}

func TestHTTPTimeout(t *testing.T) {
	cfg := Config{TimeoutSeconds: 20}
	if got := cfg.httpTimeout(); got != 20*time.Second {
		t.Errorf("timeout = %s", got)
	}
}
