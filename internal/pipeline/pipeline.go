// Package pipeline turns one issue into one pull request.
//
// A run has five stages that execute strictly in order: fetch the issue, generate a patch, apply it to the local
// checkout, publish a branch, and open a pull request. There are no retries and nothing is rolled back. An issue
// without a body ends the run before anything else happens.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/issue-autofix/internal/config"
	githubpkg "github.com/cchalm/issue-autofix/internal/github"
	"github.com/cchalm/issue-autofix/internal/patch"
)

// ErrNoDiff is returned under lenient extraction when the completion does not even mention a diff
var ErrNoDiff = errors.New("no diff found in the completion")

type IssueFetcher interface {
	GetIssue(ctx context.Context, number int) (githubpkg.Issue, error)
}

type PatchGenerator interface {
	GeneratePatch(ctx context.Context, issue githubpkg.Issue) (string, error)
}

type PatchApplier interface {
	Apply(ctx context.Context, diff string) (string, error)
}

type BranchPublisher interface {
	Publish(ctx context.Context, issueNumber int, commitMessage string) (string, error)
}

type PullRequestOpener interface {
	CreatePullRequest(ctx context.Context, head, base, title, body string) (githubpkg.PullRequest, error)
}

// Stages are the collaborators that do the actual work of each stage
type Stages struct {
	Fetcher   IssueFetcher
	Generator PatchGenerator
	Applier   PatchApplier
	Publisher BranchPublisher
	Opener    PullRequestOpener
}

// Options control the policy decisions of a run
type Options struct {
	Repository string
	BaseBranch string

	// LenientExtraction accepts a completion without a ```diff block as long as it contains the word "diff", and
	// applies the whole completion in that case
	LenientExtraction bool
	// PullRequestFailureFatal makes a failed pull request creation fail the run. When false the failure is logged and
	// the run completes with OutcomeCompletedWithoutPR
	PullRequestFailureFatal bool
	// DryRun stops after the diff has been extracted
	DryRun bool
}

// Outcome summarises how a run ended without error
type Outcome string

const (
	OutcomeSkipped            Outcome = "skipped"
	OutcomeDryRun             Outcome = "dry-run"
	OutcomeCompleted          Outcome = "completed"
	OutcomeCompletedWithoutPR Outcome = "completed-without-pr"
)

// Result records what a run produced. Fields are filled in as stages complete, so a failed run still reports how
// far it got
type Result struct {
	Outcome        Outcome
	Issue          githubpkg.Issue
	Completion     string
	Diff           string
	PatchPath      string
	Branch         string
	PullRequest    *githubpkg.PullRequest
	PullRequestErr error
}

type Pipeline struct {
	stages    Stages
	templates *config.ParsedTemplates
	tracer    trace.Tracer
	opts      Options
}

// New creates a Pipeline. A nil tracer disables tracing
func New(stages Stages, templates *config.ParsedTemplates, tracer trace.Tracer, opts Options) *Pipeline {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Pipeline{
		stages:    stages,
		templates: templates,
		tracer:    tracer,
		opts:      opts,
	}
}

// Run processes a single issue. Every failure is returned as a *StageError, except a failed pull request when
// PullRequestFailureFatal is off
func (p *Pipeline) Run(ctx context.Context, issueNumber int) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "issue-autofix.run", trace.WithAttributes(
		attribute.Int("issue.number", issueNumber),
		attribute.String("repository", p.opts.Repository),
	))
	defer span.End()

	result, err := p.run(ctx, issueNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	return result, err
}

func (p *Pipeline) run(ctx context.Context, issueNumber int) (Result, error) {
	log := clog.FromContext(ctx)
	var result Result

	// Fetch
	empty := false
	err := p.stage(ctx, StageFetch, func(ctx context.Context) error {
		issue, err := p.stages.Fetcher.GetIssue(ctx, issueNumber)
		result.Issue = issue
		if errors.Is(err, githubpkg.ErrEmptyIssue) {
			empty = true
			return nil
		}
		return err
	})
	if err != nil {
		return result, err
	}
	if empty {
		log.Infof("Issue #%d has no content, nothing to do", issueNumber)
		result.Outcome = OutcomeSkipped
		return result, nil
	}
	log.With("title", result.Issue.Title).Infof("Fetched issue #%d", result.Issue.Number)

	// Generate
	err = p.stage(ctx, StageGenerate, func(ctx context.Context) error {
		completion, err := p.stages.Generator.GeneratePatch(ctx, result.Issue)
		if err != nil {
			return err
		}
		result.Completion = completion

		diff, err := p.extract(completion)
		if err != nil {
			return err
		}
		result.Diff = diff
		return nil
	})
	if err != nil {
		return result, err
	}
	log.With("bytes", len(result.Diff)).Info("Extracted diff from completion")

	if p.opts.DryRun {
		log.Info("Dry run, stopping before the patch is applied")
		result.Outcome = OutcomeDryRun
		return result, nil
	}

	// Apply
	err = p.stage(ctx, StageApply, func(ctx context.Context) error {
		path, err := p.stages.Applier.Apply(ctx, result.Diff)
		result.PatchPath = path
		return err
	})
	if err != nil {
		return result, err
	}
	log.Infof("Applied patch %s", result.PatchPath)

	// Publish
	data := p.templateData(result.Issue)
	err = p.stage(ctx, StagePublish, func(ctx context.Context) error {
		message, err := p.templates.CommitMessage(data)
		if err != nil {
			return err
		}
		branch, err := p.stages.Publisher.Publish(ctx, result.Issue.Number, message)
		if err != nil {
			return err
		}
		result.Branch = branch
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("branch", branch))
		return nil
	})
	if err != nil {
		return result, err
	}

	// Open pull request
	data.Branch = result.Branch
	err = p.stage(ctx, StagePullRequest, func(ctx context.Context) error {
		title, err := p.templates.PullRequestTitle(data)
		if err != nil {
			return err
		}
		body, err := p.templates.PullRequestBody(data)
		if err != nil {
			return err
		}
		pr, err := p.stages.Opener.CreatePullRequest(ctx, result.Branch, p.opts.BaseBranch, title, body)
		if err != nil {
			return err
		}
		result.PullRequest = &pr
		return nil
	})
	if err != nil {
		if p.opts.PullRequestFailureFatal {
			return result, err
		}
		log.Errorf("Failed to create pull request, branch %s was pushed but has no pull request: %v", result.Branch, err)
		result.PullRequestErr = err
		result.Outcome = OutcomeCompletedWithoutPR
		return result, nil
	}

	log.With("url", result.PullRequest.URL).Infof("Pull request #%d created", result.PullRequest.Number)
	result.Outcome = OutcomeCompleted
	return result, nil
}

// stage runs fn in its own span and wraps any error in a *StageError
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, string(stage))
	defer span.End()
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("stage", string(stage)))

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline) extract(completion string) (string, error) {
	if !p.opts.LenientExtraction {
		return patch.Extract(completion)
	}

	if !patch.ContainsDiffKeyword(completion) {
		return "", ErrNoDiff
	}
	diff := patch.ExtractLenient(completion)
	if strings.TrimSpace(diff) == "" {
		return "", patch.ErrEmptyDiff
	}
	return diff, nil
}

func (p *Pipeline) templateData(issue githubpkg.Issue) config.TemplateData {
	return config.TemplateData{
		Repository:  p.opts.Repository,
		IssueNumber: issue.Number,
		IssueTitle:  issue.Title,
		IssueBody:   issue.Body,
		IssueURL:    issue.URL,
		BaseBranch:  p.opts.BaseBranch,
	}
}
