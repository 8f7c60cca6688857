package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyBackoffDoublesAndCaps(t *testing.T) {
	p := DeliveryPolicy{
		MaxAttempts: 5,
		BaseBackoff: 30 * time.Second,
		BackoffCap:  4 * time.Minute,
	}

	assert.Equal(t, 30*time.Second, p.Backoff(1))
	assert.Equal(t, 60*time.Second, p.Backoff(2))
	assert.Equal(t, 120*time.Second, p.Backoff(3))
	assert.Equal(t, 240*time.Second, p.Backoff(4))
	// Capped from here on.
	assert.Equal(t, 240*time.Second, p.Backoff(5))
	assert.Equal(t, 240*time.Second, p.Backoff(12))
}

func TestPolicyBackoffClampsAttemptNumber(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, p.BaseBackoff, p.Backoff(0))
	assert.Equal(t, p.BaseBackoff, p.Backoff(-3))
}
