package llmclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// FakeClient answers without a network round-trip. It backs the "fake"
// provider for offline runs and doubles as a scriptable test double.
type FakeClient struct {
	// Respond produces the reply; nil uses a canned object that satisfies
	// both the partial analysis and the final summary shapes.
	Respond func(ctx context.Context, prompt string, input any) (json.RawMessage, error)

	mu    sync.Mutex
	calls []FakeCall
}

// FakeCall records one GenerateJSON invocation.
type FakeCall struct {
	Prompt string
	Input  []Message
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Prompt: prompt, Input: Messages(input)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Respond != nil {
		return f.Respond(ctx, prompt, input)
	}
	return cannedReply(input), nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func cannedReply(input any) json.RawMessage {
	n := 0
	for _, m := range Messages(input) {
		n += strings.Count(m.Content, "## File: ")
	}
	obj := map[string]any{
		"summary":         "Offline summary generated without a language model.",
		"technologies":    []string{},
		"structure":       "The repository was analysed offline.",
		"purpose":         "Offline partial analysis.",
		"structure_notes": "",
		"files_seen":      n,
	}
	b, _ := json.Marshal(obj)
	return b
}
