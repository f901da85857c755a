package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	llmclient "reposummarizer/internal/llmClient"
)

// rpsLimiter is a lightweight token-bucket limiter that throttles to at most
// R requests per second with an optional burst capacity.
type rpsLimiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newRPSLimiter returns nil (disabled) when rps <= 0.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Stop terminates the limiter's refill goroutine.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// RateLimit limits request rate. The limiter is shared by every call made
// through the wrapped client, including concurrent map calls.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, prompt, input)
}

// RespectRateLimitSignals delays requests while the provider's last
// rate-limit headers say the budget is exhausted. It must wrap the raw
// client directly; other clients pass through untouched.
func RespectRateLimitSignals(adapter llmclient.RateLimitControlAdapter) Middleware {
	if adapter == nil {
		adapter = llmclient.HeaderRateLimitControlAdapter{}
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		aware, ok := next.(llmclient.RateLimitHeaderAwareClient)
		if !ok {
			return next
		}
		return &rateLimitSignalControlled{next: next, aware: aware, adapter: adapter}
	}
}

type rateLimitSignalControlled struct {
	next    llmclient.LLMClient
	aware   llmclient.RateLimitHeaderAwareClient
	adapter llmclient.RateLimitControlAdapter
}

func (m *rateLimitSignalControlled) Name() string { return m.next.Name() }
func (m *rateLimitSignalControlled) Close() error { return m.next.Close() }

func (m *rateLimitSignalControlled) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.next.GenerateJSON(ctx, prompt, input)
}

func (m *rateLimitSignalControlled) wait(ctx context.Context) error {
	headers, ok := m.aware.LastRateLimitHeaders()
	if !ok {
		return nil
	}
	wait := m.adapter.NextWait(headers)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
