package llmclient

import (
	"encoding/json"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn sent after the system prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages normalises a GenerateJSON input into conversation turns.
func Messages(input any) []Message {
	switch v := input.(type) {
	case nil:
		return nil
	case string:
		return []Message{{Role: RoleUser, Content: v}}
	case []Message:
		return v
	default:
		in, _ := json.MarshalIndent(input, "", "  ")
		return []Message{{Role: RoleUser, Content: "[INPUT JSON]\n" + string(in)}}
	}
}
