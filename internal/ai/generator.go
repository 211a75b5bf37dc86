package ai

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/cchalm/issue-autofix/internal/config"
	githubpkg "github.com/cchalm/issue-autofix/internal/github"
)

// PatchGenerator asks a Completer to fix an issue
type PatchGenerator struct {
	completer      Completer
	templates      *config.ParsedTemplates
	relatedCode    string
	commentContent string
}

// NewPatchGenerator creates a PatchGenerator. relatedCode is included in every prompt when non-empty. A non-empty
// commentContent replaces the issue body as the thing the model is asked to address
func NewPatchGenerator(completer Completer, templates *config.ParsedTemplates, relatedCode string, commentContent string) *PatchGenerator {
	return &PatchGenerator{
		completer:      completer,
		templates:      templates,
		relatedCode:    relatedCode,
		commentContent: commentContent,
	}
}

// GeneratePatch returns the raw completion for the issue. The text is not inspected; it may be empty or contain no
// diff at all
func (pg *PatchGenerator) GeneratePatch(ctx context.Context, issue githubpkg.Issue) (string, error) {
	prompt, err := pg.templates.Prompt(config.TemplateData{
		Repository:     issue.Owner + "/" + issue.Repo,
		IssueNumber:    issue.Number,
		IssueTitle:     issue.Title,
		IssueBody:      issue.Body,
		IssueURL:       issue.URL,
		RelatedCode:    pg.relatedCode,
		CommentContent: pg.commentContent,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	clog.FromContext(ctx).With("prompt_bytes", len(prompt)).Info("Requesting patch")
	completion, err := pg.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate patch: %w", err)
	}
	return completion, nil
}
