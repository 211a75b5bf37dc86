package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/issue-autofix/internal/config"
	githubpkg "github.com/cchalm/issue-autofix/internal/github"
)

const fencedDiff = "```diff\n--- a/x\n+++ b/x\n@@ -1 +1 @@\n```"

// capturingServer records the decoded JSON request body and replies with response
func capturingServer(t *testing.T, response string) (*httptest.Server, *map[string]any) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestOpenAICompleter(t *testing.T) {
	response, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4-1106-preview",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": fencedDiff},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	require.NoError(t, err)
	server, captured := capturingServer(t, string(response))

	client := openai.NewClient(
		openaiopt.WithAPIKey("sk-test"),
		openaiopt.WithBaseURL(server.URL+"/"),
		openaiopt.WithMaxRetries(0),
	)
	text, err := NewOpenAICompleter(client, "gpt-4-1106-preview").Complete(context.Background(), "fix it")

	require.NoError(t, err)
	require.Equal(t, fencedDiff, text)

	require.Equal(t, "gpt-4-1106-preview", (*captured)["model"])
	require.Equal(t, float64(0), (*captured)["temperature"])
	messages := (*captured)["messages"].([]any)
	require.Len(t, messages, 1)
	require.Equal(t, "user", messages[0].(map[string]any)["role"])
	require.Equal(t, "fix it", messages[0].(map[string]any)["content"])
}

func TestAnthropicCompleter(t *testing.T) {
	response, err := json.Marshal(map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-sonnet-4-20250514",
		"content":       []map[string]any{{"type": "text", "text": fencedDiff}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
	})
	require.NoError(t, err)
	server, captured := capturingServer(t, string(response))

	client := anthropic.NewClient(
		anthropt.WithAPIKey("sk-ant"),
		anthropt.WithBaseURL(server.URL+"/"),
		anthropt.WithMaxRetries(0),
	)
	text, err := NewAnthropicCompleter(client, "claude-sonnet-4-20250514", 1024).Complete(context.Background(), "fix it")

	require.NoError(t, err)
	require.Equal(t, fencedDiff, text)

	require.Equal(t, "claude-sonnet-4-20250514", (*captured)["model"])
	require.Equal(t, float64(0), (*captured)["temperature"])
	require.Equal(t, float64(1024), (*captured)["max_tokens"])
	messages := (*captured)["messages"].([]any)
	require.Len(t, messages, 1)
	require.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicCompleter_MalformedMessage(t *testing.T) {
	server, _ := capturingServer(t, `{"id": "msg_1", "type": "message", "role": "assistant", "content": []}`)

	client := anthropic.NewClient(
		anthropt.WithAPIKey("sk-ant"),
		anthropt.WithBaseURL(server.URL+"/"),
		anthropt.WithMaxRetries(0),
	)
	_, err := NewAnthropicCompleter(client, "claude", 1024).Complete(context.Background(), "fix it")
	require.ErrorContains(t, err, "malformed message")
}

type fakeCompleter struct {
	prompts  []string
	response string
	err      error
}

func (fc *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	fc.prompts = append(fc.prompts, prompt)
	return fc.response, fc.err
}

func TestGeneratePatch(t *testing.T) {
	completer := &fakeCompleter{response: "no fenced block here"}
	gen := NewPatchGenerator(completer, config.MustParseDefaultTemplates(), "func parse() {}", "")

	completion, err := gen.GeneratePatch(context.Background(), githubpkg.Issue{
		Owner:  "octo",
		Repo:   "widgets",
		Number: 42,
		Body:   "Fix off-by-one in parser",
	})

	require.NoError(t, err)
	require.Equal(t, "no fenced block here", completion, "completion must be returned untouched")
	require.Len(t, completer.prompts, 1)
	require.Contains(t, completer.prompts[0], "Fix off-by-one in parser")
	require.Contains(t, completer.prompts[0], "#42")
	require.Contains(t, completer.prompts[0], "func parse() {}")
}

func TestGeneratePatch_ReviewComment(t *testing.T) {
	completer := &fakeCompleter{response: fencedDiff}
	gen := NewPatchGenerator(completer, config.MustParseDefaultTemplates(), "", "Please also handle negative indexes")

	_, err := gen.GeneratePatch(context.Background(), githubpkg.Issue{Number: 42, Body: "Fix off-by-one in parser"})

	require.NoError(t, err)
	require.Len(t, completer.prompts, 1)
	require.Contains(t, completer.prompts[0], "Please also handle negative indexes")
	require.NotContains(t, completer.prompts[0], "Fix off-by-one in parser")
}

func TestGeneratePatch_PropagatesErrors(t *testing.T) {
	apiErr := errors.New("503 service unavailable")
	gen := NewPatchGenerator(&fakeCompleter{err: apiErr}, config.MustParseDefaultTemplates(), "", "")

	_, err := gen.GeneratePatch(context.Background(), githubpkg.Issue{Number: 1, Body: "body"})
	require.ErrorIs(t, err, apiErr)
}
