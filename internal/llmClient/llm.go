package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reposummarizer/internal/util/jsonutil"
)

// LLMClient is a chat model that answers with a single JSON object.
//
// prompt is the system instruction. input is the user side of the exchange:
// a string is sent as one user message, a []Message is sent as is, and
// anything else is rendered as indented JSON.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

var ErrInvalidJSON = errors.New("invalid json from LLM")

// InvalidJSONError carries the raw reply that failed to parse.
type InvalidJSONError struct {
	Raw string
}

func (e *InvalidJSONError) Error() string {
	const max = 200
	raw := e.Raw
	if len(raw) > max {
		raw = raw[:max] + "..."
	}
	return fmt.Sprintf("%v: %q", ErrInvalidJSON, raw)
}

func (e *InvalidJSONError) Is(target error) bool { return target == ErrInvalidJSON }

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Usage is the token accounting reported by a provider for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type UsageHandler func(model string, u Usage)

// checkJSON validates a model reply and returns it as a RawMessage.
func checkJSON(content string) (json.RawMessage, error) {
	content = jsonutil.TrimCodeFence(content)
	if content == "" {
		return nil, &InvalidJSONError{}
	}
	raw := json.RawMessage(content)
	if !json.Valid(raw) {
		return nil, &InvalidJSONError{Raw: content}
	}
	return raw, nil
}
