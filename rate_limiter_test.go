package hawk

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_Unset(t *testing.T) {
	rl := NewRateLimiter(zap.NewNop())
	assert.Zero(t, rl.PauseRemaining())
}

func TestRateLimiter_RetryAfterSeconds(t *testing.T) {
	rl := NewRateLimiter(zap.NewNop())

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	rl.HandleRetryAfter(headers)

	remaining := rl.PauseRemaining()
	assert.Greater(t, remaining, 25*time.Second)
	assert.LessOrEqual(t, remaining, 30*time.Second)
}

func TestRateLimiter_RetryAfterHTTPDate(t *testing.T) {
	rl := NewRateLimiter(zap.NewNop())

	headers := http.Header{}
	headers.Set("Retry-After", time.Now().Add(45*time.Second).UTC().Format(time.RFC1123))
	rl.HandleRetryAfter(headers)

	remaining := rl.PauseRemaining()
	assert.Greater(t, remaining, 40*time.Second)
	assert.LessOrEqual(t, remaining, 45*time.Second)
}

func TestRateLimiter_UnparseableHeaderUsesDefault(t *testing.T) {
	rl := NewRateLimiter(zap.NewNop())

	headers := http.Header{}
	headers.Set("Retry-After", "soon-ish")
	rl.HandleRetryAfter(headers)

	remaining := rl.PauseRemaining()
	assert.Greater(t, remaining, 55*time.Second)
	assert.LessOrEqual(t, remaining, defaultRateLimitPause)
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(zap.NewNop())

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	rl.HandleRetryAfter(headers)
	rl.Reset()

	assert.Zero(t, rl.PauseRemaining())
}
