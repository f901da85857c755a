package pipeline

import (
	"context"

	"reposummarizer/internal/llm"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
)

// Single summarizes an assembled context with one model call.
type Single struct{ LLM llmclient.LLMClient }

func (s *Single) Run(ctx context.Context, contextText string) (types.SummaryResult, error) {
	observe(ctx, Event{Stage: StageSummarizing})
	raw, err := s.LLM.GenerateJSON(llm.WithWorker(ctx, "single"), singleSystemPrompt, singleUserPrefix+contextText)
	if err != nil {
		observe(ctx, Event{Stage: StageFailed, Message: err.Error()})
		return types.SummaryResult{}, llmError(err)
	}
	res, err := decodeSummary(raw)
	if err != nil {
		observe(ctx, Event{Stage: StageFailed, Message: err.Error()})
		return types.SummaryResult{}, err
	}
	observe(ctx, Event{Stage: StageDone})
	return res, nil
}
