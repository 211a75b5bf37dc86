package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
)

// DefaultFileName is where the extracted diff is written when no other name is configured
const DefaultFileName = "patch.diff"

// Repo applies a patch file to a working tree
type Repo interface {
	Apply(ctx context.Context, patchPath string) error
}

// Applier persists a diff to disk and hands it to the repository. The patch file is left in place afterwards
type Applier struct {
	repo     Repo
	filePath string
}

// NewApplier creates an Applier that writes to fileName, resolved against the current working directory
func NewApplier(repo Repo, fileName string) (*Applier, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	path, err := filepath.Abs(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patch file path '%s': %w", fileName, err)
	}
	return &Applier{repo: repo, filePath: path}, nil
}

// FilePath returns the absolute path of the patch file
func (a *Applier) FilePath() string {
	return a.filePath
}

// Apply writes diff to the patch file and applies it. The returned path is set even if applying fails.
// The file holds the diff followed by a terminating newline, added only when the diff lacks one
func (a *Applier) Apply(ctx context.Context, diff string) (string, error) {
	content := diff
	// git apply rejects a final hunk line without a terminator
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := os.WriteFile(a.filePath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write patch file: %w", err)
	}
	clog.FromContext(ctx).With("path", a.filePath, "bytes", len(content)).Info("Wrote patch file")

	if err := a.repo.Apply(ctx, a.filePath); err != nil {
		return a.filePath, fmt.Errorf("failed to apply patch: %w", err)
	}
	return a.filePath, nil
}
