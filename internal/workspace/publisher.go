package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// DefaultRemote is the remote branches are pushed to when none is configured
const DefaultRemote = "origin"

// ErrNothingToCommit is returned when publishing is attempted on a clean working tree
var ErrNothingToCommit = errors.New("working tree has no changes to commit")

// BranchName returns the branch a fix for the given issue is published on
func BranchName(issueNumber int) string {
	return fmt.Sprintf("issue-%d", issueNumber)
}

// Publisher commits the working tree to a fresh branch and pushes it. Once the push succeeds the branch exists on the
// remote regardless of what happens afterwards
type Publisher struct {
	repo   *LocalRepo
	remote string
}

// NewPublisher creates a Publisher that pushes to remote
func NewPublisher(repo *LocalRepo, remote string) *Publisher {
	if remote == "" {
		remote = DefaultRemote
	}
	return &Publisher{repo: repo, remote: remote}
}

// Publish creates the issue branch, stages everything, commits and pushes, stopping at the first failure. Nothing is
// undone on failure
func (p *Publisher) Publish(ctx context.Context, issueNumber int, commitMessage string) (string, error) {
	log := clog.FromContext(ctx)
	branch := BranchName(issueNumber)

	changed, err := p.repo.ChangedFiles()
	if err != nil {
		return "", err
	}
	if len(changed) == 0 {
		return "", ErrNothingToCommit
	}
	log.With("files", changed).Infof("Publishing %d changed file(s) on branch %s", len(changed), branch)

	if err := p.repo.CheckoutNewBranch(ctx, branch); err != nil {
		return "", fmt.Errorf("failed to create branch '%s': %w", branch, err)
	}
	if err := p.repo.AddAll(ctx); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}
	if err := p.repo.Commit(ctx, commitMessage); err != nil {
		return "", fmt.Errorf("failed to commit changes: %w", err)
	}
	if err := p.repo.Push(ctx, p.remote, branch); err != nil {
		return "", fmt.Errorf("failed to push branch '%s' to '%s': %w", branch, p.remote, err)
	}

	log.Infof("Pushed branch %s to %s", branch, p.remote)
	return branch, nil
}
