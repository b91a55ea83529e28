package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kalambet/chatrelay/internal/ollama"
)

// ChatInput is the inbound /chat body. A nil field was absent (or null) and
// takes the default; an empty string is kept as-is.
type ChatInput struct {
	UserMessage *string `json:"user_message,omitempty"`
	ModelName   *string `json:"model_name,omitempty"`
}

// ErrInvalidBody wraps every ParseChatInput failure.
var ErrInvalidBody = errors.New("invalid request body")

// ParseChatInput decodes a /chat body. An empty or whitespace-only body is
// the same as {}. Unknown fields are ignored.
func ParseChatInput(r io.Reader) (ChatInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ChatInput{}, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	var in ChatInput
	if len(bytes.TrimSpace(data)) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return ChatInput{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return in, nil
}

// BuildPayload derives the outbound Ollama request. Stream is always false.
func BuildPayload(in ChatInput, d Defaults) ollama.ChatRequest {
	model := d.Model
	if in.ModelName != nil {
		model = *in.ModelName
	}
	content := d.Message
	if in.UserMessage != nil {
		content = *in.UserMessage
	}
	return ollama.ChatRequest{
		Model:    model,
		Messages: []ollama.Message{{Role: "user", Content: content}},
		Stream:   false,
	}
}

// StringPtr returns a pointer to s, for building a ChatInput in code.
func StringPtr(s string) *string {
	return &s
}
