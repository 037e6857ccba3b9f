package hawk

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultRateLimitPause is applied when the collector rate-limits us
// without a parseable Retry-After header.
const defaultRateLimitPause = 60 * time.Second

// RateLimiter tracks collector back-pressure. When the collector answers
// 429, delivery is paused until the time announced in Retry-After. Hawk has
// no per-category limits, so a single process-wide gate is enough.
type RateLimiter struct {
	mu            sync.RWMutex
	disabledUntil time.Time
	logger        *zap.Logger
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(logger *zap.Logger) *RateLimiter {
	return &RateLimiter{logger: logger}
}

// PauseRemaining returns how long delivery must still wait, or zero when
// sending is allowed.
func (rl *RateLimiter) PauseRemaining() time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	remaining := time.Until(rl.disabledUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HandleRetryAfter records the pause announced by a 429 response.
// Accepts Retry-After as delay-seconds or as an HTTP date; falls back to
// the default pause when the header is missing or unparseable.
func (rl *RateLimiter) HandleRetryAfter(headers http.Header) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	header := strings.TrimSpace(headers.Get("Retry-After"))

	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		rl.disabledUntil = now.Add(time.Duration(seconds) * time.Second)
		rl.logger.Warn("collector rate limit applied",
			zap.Time("disabled_until", rl.disabledUntil),
			zap.Int("retry_after_seconds", seconds))
		return
	}

	if retryTime, err := time.Parse(time.RFC1123, header); err == nil && retryTime.After(now) {
		rl.disabledUntil = retryTime
		rl.logger.Warn("collector rate limit applied",
			zap.Time("disabled_until", rl.disabledUntil))
		return
	}

	rl.disabledUntil = now.Add(defaultRateLimitPause)
	rl.logger.Warn("collector rate limited without a parseable Retry-After, using default pause",
		zap.String("header", header),
		zap.Time("disabled_until", rl.disabledUntil))
}

// Reset clears the pause. Used by tests and after endpoint changes.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.disabledUntil = time.Time{}
}
