package workspace

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs an external program in a directory and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// CommandError describes a command that could not be started or exited non-zero
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (ce *CommandError) Error() string {
	msg := fmt.Sprintf("'%s' failed: %v", strings.Join(ce.Args, " "), ce.Err)
	if ce.Output != "" {
		msg += ": " + ce.Output
	}
	return msg
}

func (ce *CommandError) Unwrap() error {
	return ce.Err
}

// ExitCode returns the exit status of the command, or -1 if it never ran to completion
func (ce *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(ce.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// ExecRunner runs commands as subprocesses
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), &CommandError{
			Args:   append([]string{name}, args...),
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}
	return string(output), nil
}
