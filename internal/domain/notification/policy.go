package notification

import "time"

// DeliveryPolicy holds the retry and concurrency parameters for one channel.
// Making this an explicit object keeps backoff testable and independent of
// the queue technology's built-in defaults.
type DeliveryPolicy struct {
	// MaxAttempts bounds total send attempts. Once retry_count reaches it
	// the record is forced to failed and no further dispatch occurs.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry.
	BaseBackoff time.Duration

	// BackoffCap bounds the exponential growth of retry delays.
	BackoffCap time.Duration

	// Concurrency bounds the channel's worker pool so a slow or
	// rate-limited provider cannot starve the other channels.
	Concurrency int
}

// DefaultPolicy returns the fallback delivery policy.
func DefaultPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 30 * time.Second,
		BackoffCap:  10 * time.Minute,
		Concurrency: 10,
	}
}

// Backoff returns the delay before retry attempt n (1-based):
// BaseBackoff doubled per attempt, capped at BackoffCap.
func (p DeliveryPolicy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}
