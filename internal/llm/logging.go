package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"

	llmclient "reposummarizer/internal/llmClient"
)

// WithLogging logs request size, latency and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	size := len(prompt)
	for _, m := range llmclient.Messages(input) {
		size += len(m.Content)
	}
	worker := WorkerFrom(ctx)
	l.log.Printf("LLM request (%s, %s): %d bytes", worker, l.next.Name(), size)
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", worker, time.Since(start).Round(time.Millisecond), err)
		return raw, err
	}
	l.log.Printf("LLM response (%s) in %s: %d bytes", worker, time.Since(start).Round(time.Millisecond), len(raw))
	return raw, err
}

// LogUsage returns a usage handler that prints provider token accounting.
func LogUsage(logger *log.Logger) llmclient.UsageHandler {
	if logger == nil {
		logger = log.Default()
	}
	return func(model string, u llmclient.Usage) {
		logger.Printf("LLM usage (%s): prompt=%d completion=%d total=%d",
			model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}
}
