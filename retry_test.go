package hawk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRetryManager(cfg RetryConfig) *RetryManager {
	return NewRetryManager(&cfg, zap.NewNop(), newMetricsCollector())
}

func TestRetryManager_ShouldRetry(t *testing.T) {
	rm := newTestRetryManager(RetryConfig{MaxAttempts: 3})
	cycle := rm.NewCycle()

	err := &TransportError{Retryable: true, Message: "timeout"}

	rm.RecordAttempt(cycle)
	assert.True(t, rm.ShouldRetry(cycle, err))

	rm.RecordAttempt(cycle)
	assert.True(t, rm.ShouldRetry(cycle, err))

	rm.RecordAttempt(cycle)
	assert.False(t, rm.ShouldRetry(cycle, err), "budget exhausted after max attempts")
}

func TestRetryManager_BackoffGrowsAndCaps(t *testing.T) {
	rm := newTestRetryManager(RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        300 * time.Millisecond,
	})

	// Jitter is ±25%, so check ranges rather than exact values.
	first := rm.CalculateBackoff(1)
	assert.GreaterOrEqual(t, first, 75*time.Millisecond)
	assert.LessOrEqual(t, first, 125*time.Millisecond)

	second := rm.CalculateBackoff(2)
	assert.GreaterOrEqual(t, second, 150*time.Millisecond)
	assert.LessOrEqual(t, second, 250*time.Millisecond)

	// Attempt 4 would be 800ms before jitter — the cap applies.
	assert.LessOrEqual(t, rm.CalculateBackoff(4), 300*time.Millisecond)
}

func TestRetryManager_BackoffZeroAttempts(t *testing.T) {
	rm := newTestRetryManager(RetryConfig{InitialBackoff: 50 * time.Millisecond})
	assert.Equal(t, 50*time.Millisecond, rm.CalculateBackoff(0))
}
