package enhance

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = openai.GPT4oMini

// instruction maps each enhancement type to its system prompt.
var instruction = map[Type]string{
	TypeClarity:     "Rewrite the user's prompt to be clearer and easier to follow. Keep its intent and language. Return only the rewritten prompt.",
	TypeSpecificity: "Rewrite the user's prompt to be more specific: concrete inputs, outputs, constraints. Keep its intent. Return only the rewritten prompt.",
	TypeContext:     "Rewrite the user's prompt adding the missing context a model would need: audience, domain, assumptions. Return only the rewritten prompt.",
}

// OpenAIEnhancer calls a chat-completion backend to rewrite prompts.
type OpenAIEnhancer struct {
	client *openai.Client
	model  string
}

// NewOpenAIEnhancer creates an enhancer using the given API key and
// model. An empty model falls back to the default.
func NewOpenAIEnhancer(apiKey, model string) *OpenAIEnhancer {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIEnhancer{client: openai.NewClient(apiKey), model: model}
}

func (e *OpenAIEnhancer) Enhance(ctx context.Context, text string, typ Type) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to enhance")
	}

	system, ok := instruction[typ]
	if !ok {
		system = instruction[TypeClarity]
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("enhance request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("enhance request: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
