package cmd

import (
	"errors"
	"io/fs"

	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "issue-autofix",
	Short: "Turn a GitHub issue into a pull request with an AI-generated patch",
	Long: `issue-autofix fetches a GitHub issue, asks a completion model for a unified diff that
resolves it, applies the diff to the current checkout, pushes the result to an issue-<number>
branch and opens a pull request.

Configuration is read from the environment (and a .env file, if present). Flags override
the environment.`,
	PersistentPreRun: loadDotEnv,
	SilenceErrors:    true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadDotEnv(cmd *cobra.Command, _ []string) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		clog.WarnContextf(cmd.Context(), "Failed to load .env file, using environment variables only: %v", err)
	}
}
