package llmclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-limit-requests", "14400")
	h.Set("x-ratelimit-limit-tokens", "18000")
	h.Set("x-ratelimit-remaining-requests", "14370")
	h.Set("x-ratelimit-remaining-tokens", "17997")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")
	h.Set("x-ratelimit-reset-tokens", "7.66")

	got, ok := parseRateLimitHeaders(h)
	require.True(t, ok)
	assert.Equal(t, 2, got.RetryAfterSeconds)
	assert.Equal(t, 14400, got.LimitRequests)
	assert.Equal(t, 18000, got.LimitTokens)
	assert.Equal(t, 14370, got.RemainingRequests)
	assert.Equal(t, 17997, got.RemainingTokens)
	assert.Equal(t, 2*time.Minute+59*time.Second+560*time.Millisecond, got.ResetRequests)
	assert.InDelta(t, float64(7660*time.Millisecond), float64(got.ResetTokens), float64(time.Millisecond))
}

func TestParseRateLimitHeaders_None(t *testing.T) {
	_, ok := parseRateLimitHeaders(http.Header{"Content-Type": {"application/json"}})
	assert.False(t, ok)
}

func TestHeaderRateLimitControlAdapter_NextWait(t *testing.T) {
	adapter := HeaderRateLimitControlAdapter{}
	assert.Equal(t, 3*time.Second, adapter.NextWait(RateLimitHeaders{RetryAfterSeconds: 3}))
	assert.Equal(t, 5*time.Second, adapter.NextWait(RateLimitHeaders{LimitTokens: 100, ResetTokens: 5 * time.Second}))
	assert.Equal(t, 11*time.Second, adapter.NextWait(RateLimitHeaders{LimitRequests: 10, ResetRequests: 11 * time.Second}))
	assert.Zero(t, adapter.NextWait(RateLimitHeaders{LimitTokens: 100, RemainingTokens: 10, ResetTokens: time.Second}))
	assert.Zero(t, adapter.NextWait(RateLimitHeaders{ResetTokens: time.Second}))
}
