// Package llm layers cross-cutting behaviour (rate limiting, retries,
// JSON repair, logging, hooks) over a raw llmclient.LLMClient.
package llm

import (
	llmclient "reposummarizer/internal/llmClient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns.
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}
