package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
	"reposummarizer/internal/util/jsonutil"
)

var requiredFields = []string{"summary", "technologies", "structure"}

// decodeSummary checks that a final model reply carries every required
// field with the right type and normalises the technology list.
func decodeSummary(raw json.RawMessage) (types.SummaryResult, error) {
	var fields map[string]json.RawMessage
	if err := jsonutil.UnmarshalRaw(raw, &fields); err != nil {
		return types.SummaryResult{}, newError(KindMalformedOutput, "LLM response is not a JSON object", err)
	}
	var missing []string
	for _, f := range requiredFields {
		if v, ok := fields[f]; !ok || string(v) == "null" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return types.SummaryResult{}, newError(KindMalformedOutput,
			fmt.Sprintf("LLM response missing fields: %v", missing), nil)
	}

	var out types.SummaryResult
	if err := json.Unmarshal(raw, &out); err != nil {
		if err2 := jsonutil.UnmarshalRaw(raw, &out); err2 != nil {
			return types.SummaryResult{}, newError(KindMalformedOutput, "LLM response has wrongly typed fields", err2)
		}
	}
	out.Technologies = normalizeTechnologies(out.Technologies)
	return out, nil
}

// normalizeTechnologies trims entries and drops blanks and case-insensitive
// duplicates, keeping the first spelling seen.
func normalizeTechnologies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// llmError categorises a failed model call.
func llmError(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, llmclient.ErrInvalidJSON) {
		return newError(KindMalformedOutput, "LLM returned invalid JSON after retry", err)
	}
	return newError(KindUpstream, "LLM response error: "+err.Error(), err)
}
