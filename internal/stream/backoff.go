package stream

import "time"

// ReconnectConfig bounds the reconnection escalation with exponential backoff
type ReconnectConfig struct {
	MaxRetries    int           // Maximum number of reconnection attempts per outage (default: 5)
	RetryDelay    time.Duration // Initial retry delay (default: 1 second)
	MaxRetryDelay time.Duration // Maximum retry delay cap (default: 30 seconds)
}

// DefaultReconnectConfig returns the default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// backoffDelay calculates the exponential backoff delay for a given attempt.
//
// Formula: delay = RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
// With defaults: 1s, 2s, 4s, 8s, 16s.
func backoffDelay(attempt int, cfg ReconnectConfig) time.Duration {
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
