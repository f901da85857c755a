package llm

import (
	"context"
	"encoding/json"
	"time"

	llmclient "reposummarizer/internal/llmClient"
)

// CallObserver receives the outcome of every model call.
type CallObserver interface {
	ObserveLLMCall(client string, elapsed time.Duration, err error)
}

// Instrument reports each call to obs. A nil observer disables it.
func Instrument(obs CallObserver) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if obs == nil {
			return next
		}
		return &instrumented{next: next, obs: obs}
	}
}

type instrumented struct {
	next llmclient.LLMClient
	obs  CallObserver
}

func (i *instrumented) Name() string { return i.next.Name() }
func (i *instrumented) Close() error { return i.next.Close() }

func (i *instrumented) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := i.next.GenerateJSON(ctx, prompt, input)
	i.obs.ObserveLLMCall(i.next.Name(), time.Since(start), err)
	return raw, err
}
