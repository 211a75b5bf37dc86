// Package workspace drives the local git checkout that patches are applied to and published from.
package workspace

import (
	"context"
	"fmt"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
)

// LocalRepo is a git checkout on disk. Reads go through go-git; anything that mutates the checkout shells out to the
// git binary so that hooks, config and credential helpers behave exactly as they would for a user
type LocalRepo struct {
	root   string
	repo   *git.Repository
	runner CommandRunner
}

// OpenLocalRepo opens the repository containing path, searching parent directories for .git
func OpenLocalRepo(path string, runner CommandRunner) (*LocalRepo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at '%s': %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &LocalRepo{
		root:   wt.Filesystem.Root(),
		repo:   repo,
		runner: runner,
	}, nil
}

// Root returns the top-level directory of the working tree
func (lr *LocalRepo) Root() string {
	return lr.root
}

// ChangedFiles lists paths that are modified, added, deleted or untracked, sorted
func (lr *LocalRepo) ChangedFiles() ([]string, error) {
	wt, err := lr.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %w", err)
	}

	var paths []string
	for path, fs := range status {
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Apply applies a patch file to the working tree with git apply
func (lr *LocalRepo) Apply(ctx context.Context, patchPath string) error {
	return lr.git(ctx, "apply", patchPath)
}

// CheckoutNewBranch creates branch at HEAD and switches to it. It fails if the branch already exists
func (lr *LocalRepo) CheckoutNewBranch(ctx context.Context, branch string) error {
	return lr.git(ctx, "checkout", "-b", branch)
}

// AddAll stages every change in the working tree
func (lr *LocalRepo) AddAll(ctx context.Context) error {
	return lr.git(ctx, "add", ".")
}

// Commit records the staged changes
func (lr *LocalRepo) Commit(ctx context.Context, message string) error {
	return lr.git(ctx, "commit", "-m", message)
}

// Push pushes branch to the remote branch of the same name
func (lr *LocalRepo) Push(ctx context.Context, remote string, branch string) error {
	return lr.git(ctx, "push", remote, branch)
}

func (lr *LocalRepo) git(ctx context.Context, args ...string) error {
	clog.FromContext(ctx).With("args", args).Debug("Running git")
	_, err := lr.runner.Run(ctx, lr.root, "git", args...)
	return err
}
