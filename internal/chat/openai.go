package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shelf-works/shelf/internal/service"
)

// DefaultChatModel is the OpenAI model used for chat replies
const DefaultChatModel = openai.GPT4oMini

// ErrNoAPIKey is returned when the OpenAI API key is not configured
var ErrNoAPIKey = errors.New("OpenAI API key not set")

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIResponder answers chat turns with an OpenAI model, grounding the
// reply on the chunk contexts it is given.
type OpenAIResponder struct {
	api   ChatAPI
	model string
}

func NewOpenAIResponder(apiKey string) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &OpenAIResponder{
		api:   openai.NewClient(apiKey),
		model: DefaultChatModel,
	}, nil
}

// NewOpenAIResponderWithAPI creates a responder with a custom API
// implementation (for testing).
func NewOpenAIResponderWithAPI(api ChatAPI, model string) *OpenAIResponder {
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIResponder{api: api, model: model}
}

func (r *OpenAIResponder) Respond(ctx context.Context, query string, contexts []service.ChunkContext) (string, error) {
	resp, err := r.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(contexts),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: query,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(contexts []service.ChunkContext) string {
	var b strings.Builder
	b.WriteString("You are a knowledge-base assistant. Answer using only the excerpts below. If they do not cover the question, say so.\n")
	for _, c := range contexts {
		fmt.Fprintf(&b, "\n--- %s (section %.4g) ---\n%s\n", c.FileTitle, c.ChunkIndex, c.Content)
	}
	return b.String()
}
