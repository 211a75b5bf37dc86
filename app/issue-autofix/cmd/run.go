package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/cchalm/issue-autofix/internal/ai"
	"github.com/cchalm/issue-autofix/internal/config"
	githubpkg "github.com/cchalm/issue-autofix/internal/github"
	"github.com/cchalm/issue-autofix/internal/patch"
	"github.com/cchalm/issue-autofix/internal/pipeline"
	"github.com/cchalm/issue-autofix/internal/telemetry"
	"github.com/cchalm/issue-autofix/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fix a single issue and open a pull request",
	Long: `Processes exactly one issue: fetch it, generate and apply a patch, publish an
issue-<number> branch from the current checkout and open a pull request against the base
branch. The process exit code identifies the stage that failed.

A pull request that cannot be created fails the run with exit code 6, even though the
branch has already been pushed. Set PR_FAILURE_FATAL=false (or --pr-failure-fatal=false)
to only log that failure and exit 0.`,
	RunE:         runPipeline,
	SilenceUsage: true,
}

// flagOverrides holds flag values; a flag only takes effect when it was set explicitly
var flagOverrides struct {
	Repository        string
	IssueNumber       int
	BaseBranch        string
	Provider          string
	Model             string
	TemplatesFile     string
	Comment           string
	PatchFile         string
	Remote            string
	Timeout           time.Duration
	DryRun            bool
	LenientExtraction bool
	PRFailureFatal    bool
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&flagOverrides.Repository, "repo", "", "Repository name in the format 'owner/repo' (REPOSITORY)")
	flags.IntVar(&flagOverrides.IssueNumber, "issue", 0, "Issue number to process (ISSUE_NUMBER)")
	flags.StringVar(&flagOverrides.BaseBranch, "base", "", "Branch the pull request targets (BASE_BRANCH)")
	flags.StringVar(&flagOverrides.Provider, "provider", "", "Completion provider, openai or anthropic (LLM_PROVIDER)")
	flags.StringVar(&flagOverrides.Model, "model", "", "Completion model (LLM_MODEL)")
	flags.StringVar(&flagOverrides.TemplatesFile, "templates", "", "YAML file overriding the prompt, commit and pull request templates (TEMPLATES_FILE)")
	flags.StringVar(&flagOverrides.Comment, "comment", "", "Pull request review comment to address instead of the issue body (COMMENT_CONTENT)")
	flags.StringVar(&flagOverrides.PatchFile, "patch-file", "", "Where the extracted diff is written (PATCH_FILE)")
	flags.StringVar(&flagOverrides.Remote, "remote", "", "Remote the branch is pushed to (GIT_REMOTE)")
	flags.DurationVar(&flagOverrides.Timeout, "timeout", 0, "Abort the run after this long, 0 for no limit (RUN_TIMEOUT)")
	flags.BoolVar(&flagOverrides.DryRun, "dry-run", false, "Print the extracted diff instead of applying it (DRY_RUN)")
	flags.BoolVar(&flagOverrides.LenientExtraction, "lenient", false, "Apply the whole completion when it has no ```diff block (LENIENT_EXTRACTION)")
	flags.BoolVar(&flagOverrides.PRFailureFatal, "pr-failure-fatal", true, "Fail the run when the pull request cannot be created (PR_FAILURE_FATAL)")

	rootCmd.AddCommand(runCmd)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("repo") {
		cfg.Repository = flagOverrides.Repository
	}
	if flags.Changed("issue") {
		cfg.IssueNumber = flagOverrides.IssueNumber
	}
	if flags.Changed("base") {
		cfg.BaseBranch = flagOverrides.BaseBranch
	}
	if flags.Changed("provider") {
		cfg.Provider = flagOverrides.Provider
	}
	if flags.Changed("model") {
		cfg.Model = flagOverrides.Model
	}
	if flags.Changed("templates") {
		cfg.TemplatesFile = flagOverrides.TemplatesFile
	}
	if flags.Changed("comment") {
		cfg.CommentContent = flagOverrides.Comment
	}
	if flags.Changed("patch-file") {
		cfg.PatchFile = flagOverrides.PatchFile
	}
	if flags.Changed("remote") {
		cfg.GitRemote = flagOverrides.Remote
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagOverrides.Timeout
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = flagOverrides.DryRun
	}
	if flags.Changed("lenient") {
		cfg.LenientExtraction = flagOverrides.LenientExtraction
	}
	if flags.Changed("pr-failure-fatal") {
		cfg.PullRequestFailureFatal = flagOverrides.PRFailureFatal
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	level, _ := cfg.SlogLevel()
	ctx = setupLogging(ctx, level)

	if cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Timeout)
		defer cancelTimeout()
	}

	telemetryProvider, err := createTelemetryProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		// The run context may already be cancelled; spans should still be flushed
		if err := telemetryProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			clog.WarnContextf(ctx, "Failed to flush telemetry: %v", err)
		}
	}()

	runID := telemetry.NewRunID()
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("run_id", runID))

	clog.InfoContextf(ctx, "Starting issue-autofix for %s#%d", cfg.Repository, cfg.IssueNumber)
	clog.InfoContextf(ctx, "Provider: %s, model: %s", cfg.Provider, cfg.ModelName())

	p, err := buildPipeline(ctx, cfg, telemetryProvider)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, cfg.IssueNumber)
	if err != nil {
		return err
	}
	reportResult(cmd.OutOrStdout(), result)
	return nil
}

func buildPipeline(ctx context.Context, cfg config.Config, telemetryProvider *telemetry.Provider) (*pipeline.Pipeline, error) {
	owner, repo, err := cfg.OwnerAndRepo()
	if err != nil {
		return nil, err
	}

	templates, err := config.LoadTemplates(cfg.TemplatesFile)
	if err != nil {
		return nil, err
	}
	parsedTemplates, err := templates.Parse()
	if err != nil {
		return nil, err
	}

	githubClient, err := createGithubClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stages := pipeline.Stages{
		Fetcher:   githubpkg.NewIssueService(githubClient, owner, repo),
		Generator: ai.NewPatchGenerator(createCompleter(cfg), parsedTemplates, cfg.RelatedCode, cfg.CommentContent),
		Opener:    githubpkg.NewPullRequestService(githubClient, owner, repo),
	}

	// A dry run never touches the checkout, so it does not need one
	if !cfg.DryRun {
		localRepo, err := workspace.OpenLocalRepo(".", workspace.ExecRunner{})
		if err != nil {
			return nil, err
		}
		clog.InfoContextf(ctx, "Repository root: %s", localRepo.Root())

		applier, err := patch.NewApplier(localRepo, cfg.PatchFile)
		if err != nil {
			return nil, err
		}
		stages.Applier = applier
		stages.Publisher = workspace.NewPublisher(localRepo, cfg.GitRemote)
	}

	return pipeline.New(stages, parsedTemplates, telemetryProvider.Tracer(), pipeline.Options{
		Repository:              cfg.Repository,
		BaseBranch:              cfg.BaseBranch,
		LenientExtraction:       cfg.LenientExtraction,
		PullRequestFailureFatal: cfg.PullRequestFailureFatal,
		DryRun:                  cfg.DryRun,
	}), nil
}

func reportResult(out io.Writer, result pipeline.Result) {
	switch result.Outcome {
	case pipeline.OutcomeSkipped:
		fmt.Fprintln(out, "No issue content found, exiting...")
	case pipeline.OutcomeDryRun:
		fmt.Fprintln(out, result.Diff)
	case pipeline.OutcomeCompletedWithoutPR:
		fmt.Fprintf(out, "Failed to create Pull Request from branch %s: %v\n", result.Branch, result.PullRequestErr)
	case pipeline.OutcomeCompleted:
		fmt.Fprintf(out, "Pull Request created successfully: %s\n", result.PullRequest.URL)
	}
}
