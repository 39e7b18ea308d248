package stream

import (
	"testing"
	"time"
)

// TestBackoffDelay verifies the exponential schedule and its cap.
func TestBackoffDelay(t *testing.T) {
	cfg := DefaultReconnectConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt, cfg); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

// TestBackoffDelayCustomCap verifies the cap applies to custom configs.
func TestBackoffDelayCustomCap(t *testing.T) {
	cfg := ReconnectConfig{
		MaxRetries:    3,
		RetryDelay:    500 * time.Millisecond,
		MaxRetryDelay: 1 * time.Second,
	}

	if got := backoffDelay(1, cfg); got != 500*time.Millisecond {
		t.Errorf("backoffDelay(1) = %v, want 500ms", got)
	}
	if got := backoffDelay(2, cfg); got != 1*time.Second {
		t.Errorf("backoffDelay(2) = %v, want 1s", got)
	}
	if got := backoffDelay(3, cfg); got != 1*time.Second {
		t.Errorf("backoffDelay(3) = %v, want 1s (capped)", got)
	}
}
