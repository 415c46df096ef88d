package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
	"nuclight.org/wa-stylist-relay/pkg/media"
	"nuclight.org/wa-stylist-relay/pkg/transport"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 300
)

type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAI calls a chat completions endpoint. The API key lives in the
// transport client.
type OpenAI struct {
	cfg    Config
	client *transport.Client
}

func NewOpenAI(cfg Config, client *transport.Client) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &OpenAI{
		cfg:    cfg,
		client: client,
	}
}

// RunVisionInference asks the model about an inline image. A non-200 answer
// is returned as *InferenceError.
func (c *OpenAI) RunVisionInference(ctx context.Context, img e.EncodedMedia, prompt string) (*Response, error) {
	request := NewVisionRequest(c.cfg.Model, c.cfg.MaxTokens, img, prompt)

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshaling body: %w", err)
	}

	res, err := c.client.PostJSON(ctx, c.cfg.BaseURL+"/chat/completions", body)
	if err != nil {
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &InferenceError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
		}

		return nil, fmt.Errorf("doing request: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, &InferenceError{StatusCode: res.StatusCode, Body: res.Body}
	}

	var response Response
	if err = json.Unmarshal(res.Body, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &response, nil
}

// NewVisionRequest builds a single user turn holding the prompt and the image
// as a data: URI.
func NewVisionRequest(model string, maxTokens int, img e.EncodedMedia, prompt string) Request {
	return Request{
		Model: model,
		Messages: []Message{
			{
				Role: RoleUser,
				Content: []ContentPart{
					{
						Type: PartTypeText,
						Text: prompt,
					},
					{
						Type:     PartTypeImageURL,
						ImageURL: &ImageURL{URL: media.DataURI(img)},
					},
				},
			},
		},
		MaxTokens: maxTokens,
	}
}
