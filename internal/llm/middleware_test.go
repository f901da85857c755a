package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "reposummarizer/internal/llmClient"
)

// scripted replies in order and records what it was sent.
type scripted struct {
	mu      sync.Mutex
	replies []reply
	inputs  []any
	times   []time.Time
}

type reply struct {
	raw string
	err error
}

func (s *scripted) Name() string { return "scripted" }
func (s *scripted) Close() error { return nil }
func (s *scripted) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	s.times = append(s.times, time.Now())
	if len(s.replies) == 0 {
		return json.RawMessage(`{}`), nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

func TestWrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			order = append(order, name)
			return next
		}
	}
	Wrap(&scripted{}, tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	inner := &scripted{replies: []reply{{err: errors.New("boom")}, {raw: `{"ok":true}`}}}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	raw, err := cli.GenerateJSON(context.Background(), "p", "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 2, inner.calls())
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := &scripted{replies: []reply{{err: llmclient.NewPermanentError(errors.New("context_length_exceeded"))}}}
	cli := Wrap(inner, Retry(5, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", "x")
	var pe *llmclient.PermanentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, inner.calls())
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &scripted{replies: []reply{{err: errors.New("a")}, {err: errors.New("b")}, {err: errors.New("c")}}}
	cli := Wrap(inner, Retry(2, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", "x")
	require.EqualError(t, err, "b")
	assert.Equal(t, 2, inner.calls())
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	inner := &scripted{replies: []reply{{err: errors.New("a")}, {err: errors.New("b")}}}
	cli := Wrap(inner, Retry(2, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cli.GenerateJSON(ctx, "p", "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls())
}

func TestRateLimit_Burst1Spacing(t *testing.T) {
	inner := &scripted{}
	cli := Wrap(inner, RateLimit(2, 1))
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	_, err := cli.GenerateJSON(ctx, "p", "x")
	require.NoError(t, err)
	_, err = cli.GenerateJSON(ctx, "p", "x")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
	assert.Equal(t, 2, inner.calls())
}

func TestRateLimit_Disabled(t *testing.T) {
	cli := Wrap(&scripted{}, RateLimit(0, 0))
	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := cli.GenerateJSON(context.Background(), "p", "x")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.NoError(t, cli.Close())
}

func TestRateLimit_CanceledWhileWaiting(t *testing.T) {
	cli := Wrap(&scripted{}, RateLimit(0.01, 1))
	t.Cleanup(func() { _ = cli.Close() })

	_, err := cli.GenerateJSON(context.Background(), "p", "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateJSON(ctx, "p", "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type awareClient struct {
	scripted
	headers llmclient.RateLimitHeaders
}

func (a *awareClient) SetRateLimitHeaderHandler(llmclient.RateLimitHeaderHandler) {}
func (a *awareClient) LastRateLimitHeaders() (llmclient.RateLimitHeaders, bool) {
	return a.headers, true
}

type fixedWait time.Duration

func (f fixedWait) NextWait(llmclient.RateLimitHeaders) time.Duration { return time.Duration(f) }

func TestRespectRateLimitSignals_WaitsByAdapter(t *testing.T) {
	inner := &awareClient{headers: llmclient.RateLimitHeaders{RetryAfterSeconds: 1}}
	cli := Wrap(inner, RespectRateLimitSignals(fixedWait(25*time.Millisecond)))

	start := time.Now()
	_, err := cli.GenerateJSON(context.Background(), "p", "x")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRespectRateLimitSignals_PassThroughForUnawareClient(t *testing.T) {
	inner := &scripted{}
	cli := RespectRateLimitSignals(nil)(inner)
	assert.Same(t, inner, cli)
}

func TestRepairJSON_OneRound(t *testing.T) {
	inner := &scripted{replies: []reply{
		{err: &llmclient.InvalidJSONError{Raw: "```json {bad"}},
		{raw: `{"summary":"fixed"}`},
	}}
	cli := Wrap(inner, RepairJSON())

	raw, err := cli.GenerateJSON(context.Background(), "sys", "original")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"fixed"}`, string(raw))

	require.Equal(t, 2, inner.calls())
	turns, ok := inner.inputs[1].([]llmclient.Message)
	require.True(t, ok)
	assert.Equal(t, []llmclient.Message{
		{Role: llmclient.RoleUser, Content: "original"},
		{Role: llmclient.RoleAssistant, Content: "```json {bad"},
		{Role: llmclient.RoleUser, Content: repairInstruction},
	}, turns)
}

func TestRepairJSON_SecondFailureReturned(t *testing.T) {
	inner := &scripted{replies: []reply{
		{err: &llmclient.InvalidJSONError{Raw: "a"}},
		{err: &llmclient.InvalidJSONError{Raw: "b"}},
	}}
	cli := Wrap(inner, RepairJSON())

	_, err := cli.GenerateJSON(context.Background(), "sys", "original")
	assert.ErrorIs(t, err, llmclient.ErrInvalidJSON)
	assert.Equal(t, 2, inner.calls())
}

func TestRepairJSON_OtherErrorsUntouched(t *testing.T) {
	inner := &scripted{replies: []reply{{err: errors.New("network")}}}
	_, err := Wrap(inner, RepairJSON()).GenerateJSON(context.Background(), "sys", "x")
	assert.EqualError(t, err, "network")
	assert.Equal(t, 1, inner.calls())
}

type recordingHook struct {
	before, after []string
}

func (h *recordingHook) Before(_ context.Context, worker, _ string, _ any) {
	h.before = append(h.before, worker)
}

func (h *recordingHook) After(_ context.Context, worker string, _ json.RawMessage, err error) {
	h.after = append(h.after, worker)
}

func TestWithHooks(t *testing.T) {
	hook := &recordingHook{}
	cli := Wrap(&scripted{}, WithHooks())

	ctx := WithPromptHook(WithWorker(context.Background(), "map-2"), hook)
	_, err := cli.GenerateJSON(ctx, "p", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"map-2"}, hook.before)
	assert.Equal(t, []string{"map-2"}, hook.after)

	_, err = cli.GenerateJSON(context.Background(), "p", "x")
	require.NoError(t, err)
	assert.Len(t, hook.before, 1)
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	inner := &scripted{replies: []reply{{raw: `{}`}, {err: errors.New("nope")}}}
	cli := Wrap(inner, WithLogging(logger))

	ctx := WithWorker(context.Background(), "reduce")
	_, _ = cli.GenerateJSON(ctx, "p", "x")
	_, _ = cli.GenerateJSON(ctx, "p", "x")

	out := buf.String()
	assert.Contains(t, out, "LLM request (reduce, scripted): 2 bytes")
	assert.Contains(t, out, "LLM response (reduce)")
	assert.Contains(t, out, "LLM error (reduce)")
	assert.Contains(t, out, "nope")
}

func TestLogUsage(t *testing.T) {
	var buf bytes.Buffer
	LogUsage(log.New(&buf, "", 0))("m", llmclient.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	assert.Equal(t, "LLM usage (m): prompt=1 completion=2 total=3\n", buf.String())
}

type callCounter struct {
	mu     sync.Mutex
	ok     int
	failed int
	client string
}

func (c *callCounter) ObserveLLMCall(client string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestInstrument(t *testing.T) {
	inner := &scripted{replies: []reply{{raw: `{}`}, {err: errors.New("nope")}}}
	obs := &callCounter{}
	cli := Wrap(inner, Instrument(obs))

	_, _ = cli.GenerateJSON(context.Background(), "p", "x")
	_, _ = cli.GenerateJSON(context.Background(), "p", "x")

	assert.Equal(t, 1, obs.ok)
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, "scripted", obs.client)
}

func TestInstrument_NilObserver(t *testing.T) {
	inner := &scripted{}
	cli := Wrap(inner, Instrument(nil))
	assert.Same(t, llmclient.LLMClient(inner), cli)
}
