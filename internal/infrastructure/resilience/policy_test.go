package resilience

import (
	"testing"
	"time"
)

func TestNormalizeFillsUnsetKnobs(t *testing.T) {
	got := Config{}.normalize()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("attempts = %d, want %d", got.RetryMaxAttempts, def.RetryMaxAttempts)
	}
	if got.RetryInitialBackoff != def.RetryInitialBackoff {
		t.Fatalf("initial backoff = %v, want %v", got.RetryInitialBackoff, def.RetryInitialBackoff)
	}
	if got.RetryMaxBackoff != def.RetryMaxBackoff {
		t.Fatalf("max backoff = %v, want %v", got.RetryMaxBackoff, def.RetryMaxBackoff)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("breaker min requests = %d, want %d", got.BreakerMinRequests, def.BreakerMinRequests)
	}
}

func TestNormalizeKeepsBackoffWindowOrdered(t *testing.T) {
	got := Config{
		RetryInitialBackoff: 2 * time.Second,
		RetryMaxBackoff:     500 * time.Millisecond,
	}.normalize()

	if got.RetryMaxBackoff != got.RetryInitialBackoff {
		t.Fatalf("max backoff = %v, want raised to initial %v", got.RetryMaxBackoff, got.RetryInitialBackoff)
	}
}

func TestNormalizeRejectsBadFailureRatio(t *testing.T) {
	got := Config{BreakerFailureRatio: 1.7}.normalize()
	if got.BreakerFailureRatio != DefaultConfig().BreakerFailureRatio {
		t.Fatalf("failure ratio = %v, want default", got.BreakerFailureRatio)
	}
}
