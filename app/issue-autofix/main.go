package main

import (
	"fmt"
	"os"

	"github.com/cchalm/issue-autofix/app/issue-autofix/cmd"
	"github.com/cchalm/issue-autofix/internal/pipeline"
)

// Version information set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, GitCommit, BuildTime)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(pipeline.ExitCode(err))
	}
}
