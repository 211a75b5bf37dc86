// Package config provides configuration management for issue-autofix.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	githubpkg "github.com/cchalm/issue-autofix/internal/github"
)

// Supported completion providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider, used when LLM_MODEL is not set
const (
	DefaultOpenAIModel    = "gpt-4-1106-preview"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
)

// Config holds the configuration for a single run
type Config struct {
	// Credentials
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GitHubToken     string `env:"GITHUB_TOKEN"`

	// Target
	Repository   string `env:"REPOSITORY"`
	IssueNumber  int    `env:"ISSUE_NUMBER"`
	BaseBranch   string `env:"BASE_BRANCH,default=main"`
	GitHubAPIURL string `env:"GITHUB_API_URL"`

	// Completion
	Provider          string `env:"LLM_PROVIDER,default=openai"`
	Model             string `env:"LLM_MODEL"`
	MaxTokens         int64  `env:"LLM_MAX_TOKENS,default=4096"`
	CompletionBaseURL string `env:"LLM_BASE_URL"`
	RelatedCode       string `env:"RELATED_CODE"`
	CommentContent    string `env:"COMMENT_CONTENT"`
	TemplatesFile     string `env:"TEMPLATES_FILE"`

	// Local checkout
	PatchFile string `env:"PATCH_FILE,default=patch.diff"`
	GitRemote string `env:"GIT_REMOTE,default=origin"`

	// Behaviour
	LenientExtraction       bool          `env:"LENIENT_EXTRACTION,default=false"`
	PullRequestFailureFatal bool          `env:"PR_FAILURE_FATAL,default=true"`
	DryRun                  bool          `env:"DRY_RUN,default=false"`
	Timeout                 time.Duration `env:"RUN_TIMEOUT"`

	// Observability
	LogLevel         string `env:"LOG_LEVEL,default=info"`
	TelemetryEnabled bool   `env:"TELEMETRY_ENABLED,default=false"`
	OTLPEndpoint     string `env:"OTLP_ENDPOINT"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith loads configuration from the given lookuper
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// ModelName returns the configured model, or the default for the provider
func (c Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	default:
		return DefaultOpenAIModel
	}
}

// OwnerAndRepo splits the configured repository identifier
func (c Config) OwnerAndRepo() (string, string, error) {
	return githubpkg.ParseRepository(c.Repository)
}

// SlogLevel parses LogLevel
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level '%s': %w", c.LogLevel, err)
	}
	return level, nil
}

// Validate checks that everything a run needs is present, and reports every problem at once
func (c Config) Validate() error {
	var errs []error

	if c.GitHubToken == "" {
		errs = append(errs, errors.New("missing required environment variable: GITHUB_TOKEN"))
	}
	if _, _, err := c.OwnerAndRepo(); err != nil {
		errs = append(errs, fmt.Errorf("REPOSITORY: %w", err))
	}
	if c.IssueNumber <= 0 {
		errs = append(errs, fmt.Errorf("ISSUE_NUMBER must be a positive integer, got %d", c.IssueNumber))
	}
	if strings.TrimSpace(c.BaseBranch) == "" {
		errs = append(errs, errors.New("BASE_BRANCH must not be empty"))
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("missing required environment variable: OPENAI_API_KEY"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("missing required environment variable: ANTHROPIC_API_KEY"))
		}
		if c.MaxTokens <= 0 {
			errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.MaxTokens))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER '%s', expected %s or %s", c.Provider, ProviderOpenAI, ProviderAnthropic))
	}

	if c.PatchFile == "" {
		errs = append(errs, errors.New("PATCH_FILE must not be empty"))
	}
	if c.GitRemote == "" {
		errs = append(errs, errors.New("GIT_REMOTE must not be empty"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("RUN_TIMEOUT must not be negative, got %s", c.Timeout))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.TelemetryEnabled && c.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTLP_ENDPOINT is required when TELEMETRY_ENABLED is true"))
	}

	return errors.Join(errs...)
}
