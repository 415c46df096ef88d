package dispatcher

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

//go:embed reply_prompt.txt
var DefaultReplyPrompt string

// ReplyStrategy turns the text of an inbound message into reply text.
type ReplyStrategy interface {
	Generate(ctx context.Context, text string) (string, error)
}

// UppercaseReply echoes the message back in upper case.
type UppercaseReply struct{}

func (UppercaseReply) Generate(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

// LLMReply answers with a chat completion.
type LLMReply struct {
	Client       *openai.Client
	Model        string
	SystemPrompt string
}

func (r *LLMReply) Generate(ctx context.Context, text string) (string, error) {
	system := r.SystemPrompt
	if system == "" {
		system = DefaultReplyPrompt
	}

	resp, err := r.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	reply := whatsapp.StripPlatformMarkup(resp.Choices[0].Message.Content)
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("empty reply")
	}

	return reply, nil
}

// NewReplyStrategy picks a strategy by name: "uppercase" or "llm".
func NewReplyStrategy(name string, client *openai.Client, model string) (ReplyStrategy, error) {
	switch name {
	case "", "uppercase":
		return UppercaseReply{}, nil
	case "llm":
		if client == nil {
			return nil, fmt.Errorf("llm reply strategy needs an openai client")
		}
		return &LLMReply{Client: client, Model: model}, nil
	default:
		return nil, fmt.Errorf("unknown reply strategy: %s", name)
	}
}
