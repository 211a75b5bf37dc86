package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Stage identifies one step of a run
type Stage string

const (
	StageFetch       Stage = "fetch"
	StageGenerate    Stage = "generate"
	StageApply       Stage = "apply"
	StagePublish     Stage = "publish"
	StagePullRequest Stage = "pull-request"
)

// Process exit codes. Each failing stage has its own code so that callers can tell them apart
const (
	ExitOK          = 0
	ExitError       = 1
	ExitFetch       = 2
	ExitGenerate    = 3
	ExitApply       = 4
	ExitPublish     = 5
	ExitPullRequest = 6
	ExitInterrupted = 130
)

// StageError is returned when a stage fails
type StageError struct {
	Stage Stage
	Err   error
}

func (se *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", se.Stage, se.Err)
}

func (se *StageError) Unwrap() error {
	return se.Err
}

// ExitCode maps an error returned from Run, or from anything before it, to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var se *StageError
	if !errors.As(err, &se) {
		return ExitError
	}
	switch se.Stage {
	case StageFetch:
		return ExitFetch
	case StageGenerate:
		return ExitGenerate
	case StageApply:
		return ExitApply
	case StagePublish:
		return ExitPublish
	case StagePullRequest:
		return ExitPullRequest
	default:
		return ExitError
	}
}
