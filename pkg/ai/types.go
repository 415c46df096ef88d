package ai

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a completion lacks choices[0].message.content.
var ErrMalformedResponse = errors.New("malformed inference response")

// InferenceError is a non-200 answer from the provider. Body is kept raw, it
// is not guaranteed to be JSON.
type InferenceError struct {
	StatusCode int
	Body       []byte
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference request failed with status code %d: %s", e.StatusCode, e.Body)
}

type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type PartType string

const (
	PartTypeText     PartType = "text"
	PartTypeImageURL PartType = "image_url"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason FinishReason    `json:"finish_reason"`
}

type ResponseMessage struct {
	Role    Role    `json:"role"`
	Content *string `json:"content"`
}

type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonNull   FinishReason = ""
)

// FirstContent returns the text of the top choice.
func (r *Response) FirstContent() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	content := r.Choices[0].Message.Content
	if content == nil {
		return "", fmt.Errorf("%w: missing message content", ErrMalformedResponse)
	}

	return *content, nil
}
