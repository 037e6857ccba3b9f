package hawk

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryManager decides whether a failed batch gets another delivery attempt
// and how long to wait before it. All mutable retry state lives in the
// per-batch retryCycle — the manager itself is read-only after creation.
type RetryManager struct {
	config  *RetryConfig
	logger  *zap.Logger
	metrics *metricsCollector
}

// NewRetryManager creates a new retry manager
func NewRetryManager(config *RetryConfig, logger *zap.Logger, metrics *metricsCollector) *RetryManager {
	return &RetryManager{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// NewCycle starts the retry state for one batch delivery.
func (rm *RetryManager) NewCycle() *retryCycle {
	return &retryCycle{}
}

// RecordAttempt marks one completed transport attempt on the cycle.
func (rm *RetryManager) RecordAttempt(cycle *retryCycle) {
	cycle.Attempts++
	cycle.LastAttempt = time.Now()
}

// ShouldRetry reports whether the batch has retry budget left after a
// retryable failure.
func (rm *RetryManager) ShouldRetry(cycle *retryCycle, err error) bool {
	if cycle.Attempts >= rm.config.MaxAttempts {
		rm.logger.Error("batch exceeded max delivery attempts, dropping",
			zap.Int("attempts", cycle.Attempts),
			zap.Int("max_attempts", rm.config.MaxAttempts),
			zap.Error(err))
		return false
	}

	rm.metrics.IncRetries()
	return true
}

// CalculateBackoff calculates the backoff duration before the next attempt.
func (rm *RetryManager) CalculateBackoff(attempts int) time.Duration {
	if attempts <= 0 {
		return rm.config.InitialBackoff
	}

	// Exponential backoff with jitter
	backoff := float64(rm.config.InitialBackoff) * math.Pow(rm.config.BackoffMultiplier, float64(attempts-1))

	// Add jitter (±25% random variation)
	jitter := backoff * 0.25 * (2*rand.Float64() - 1)
	backoff += jitter

	duration := time.Duration(backoff)

	// Cap at maximum backoff
	if duration > rm.config.MaxBackoff {
		duration = rm.config.MaxBackoff
	}

	return duration
}

// Deadline returns the overall time budget for one batch's retry cycle.
func (rm *RetryManager) Deadline() time.Duration {
	return rm.config.Deadline
}
