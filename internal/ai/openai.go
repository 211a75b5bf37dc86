package ai

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

// OpenAICompleter uses the chat completions endpoint
type OpenAICompleter struct {
	client openai.Client
	model  string
}

func NewOpenAICompleter(client openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{
		client: client,
		model:  model,
	}
}

func (oc *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := oc.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(oc.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	clog.FromContext(ctx).With(
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	).Info("Received chat completion")

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
