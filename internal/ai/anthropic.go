package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// AnthropicCompleter uses the messages endpoint
type AnthropicCompleter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int64) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

func (ac *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	log := clog.FromContext(ctx)

	response, err := ac.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       ac.model,
		MaxTokens:   ac.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("message request failed: %w", err)
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			log.Errorf("error while marshalling corrupt message for inspection: %v", err)
		}
		return "", fmt.Errorf("malformed message: %v", string(b))
	}

	log.With(
		"model", response.Model,
		"stop_reason", response.StopReason,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
	).Info("Received message")
	if response.StopReason == anthropic.StopReasonMaxTokens {
		log.Warnf("Response hit the %d token limit and may contain a truncated diff", ac.maxTokens)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
