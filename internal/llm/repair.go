package llm

import (
	"context"
	"encoding/json"
	"errors"

	llmclient "reposummarizer/internal/llmClient"
)

const repairInstruction = "Your response was not valid JSON. Please return ONLY a valid JSON object, no markdown, no extra text."

// RepairJSON gives the model one chance to fix an unparseable reply: the
// bad reply is echoed back as an assistant turn followed by a correction
// request. A second invalid reply is returned as is.
func RepairJSON() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &repairing{next: next}
	}
}

type repairing struct{ next llmclient.LLMClient }

func (r *repairing) Name() string { return r.next.Name() }
func (r *repairing) Close() error { return r.next.Close() }

func (r *repairing) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	raw, err := r.next.GenerateJSON(ctx, prompt, input)
	var bad *llmclient.InvalidJSONError
	if err == nil || !errors.As(err, &bad) {
		return raw, err
	}
	turns := append([]llmclient.Message(nil), llmclient.Messages(input)...)
	turns = append(turns,
		llmclient.Message{Role: llmclient.RoleAssistant, Content: bad.Raw},
		llmclient.Message{Role: llmclient.RoleUser, Content: repairInstruction},
	)
	return r.next.GenerateJSON(ctx, prompt, turns)
}
