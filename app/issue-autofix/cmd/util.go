package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v72/github"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"golang.org/x/oauth2"

	"github.com/cchalm/issue-autofix/internal/ai"
	"github.com/cchalm/issue-autofix/internal/config"
	"github.com/cchalm/issue-autofix/internal/telemetry"
	"github.com/cchalm/issue-autofix/internal/transport"
)

func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		clog.WarnContextf(ctx, "Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		clog.FatalContextf(ctx, "Forcing shutdown")
	}()

	return ctx, cancel
}

func setupLogging(ctx context.Context, level slog.Level) context.Context {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return clog.WithLogger(ctx, clog.New(handler))
}

func createGithubClient(ctx context.Context, cfg config.Config) (*github.Client, error) {
	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHubToken},
	)
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokenSource),
			Base:   transport.WithLogging(nil),
		},
	}
	client := github.NewClient(httpClient)

	if cfg.GitHubAPIURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.GitHubAPIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL '%s': %w", cfg.GitHubAPIURL, err)
		}
		client.BaseURL = baseURL
	}
	return client, nil
}

func createCompleter(cfg config.Config) ai.Completer {
	httpClient := &http.Client{
		Transport: transport.WithLogging(nil),
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		opts := []anthropt.RequestOption{
			anthropt.WithHTTPClient(httpClient),
			anthropt.WithAPIKey(cfg.AnthropicAPIKey),
			anthropt.WithMaxRetries(0),
		}
		if cfg.CompletionBaseURL != "" {
			opts = append(opts, anthropt.WithBaseURL(cfg.CompletionBaseURL))
		}
		return ai.NewAnthropicCompleter(anthropic.NewClient(opts...), cfg.ModelName(), cfg.MaxTokens)
	default:
		opts := []openaiopt.RequestOption{
			openaiopt.WithHTTPClient(httpClient),
			openaiopt.WithAPIKey(cfg.OpenAIAPIKey),
			openaiopt.WithMaxRetries(0),
		}
		if cfg.CompletionBaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(cfg.CompletionBaseURL))
		}
		return ai.NewOpenAICompleter(openai.NewClient(opts...), cfg.ModelName())
	}
}

func createTelemetryProvider(ctx context.Context, cfg config.Config) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.TelemetryConfig{
		Enabled:        cfg.TelemetryEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: versionInfo.Version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}
