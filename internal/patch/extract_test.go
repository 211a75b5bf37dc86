package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const offByOneCompletion = "Here is the fix:\n\n```diff\n--- a/x\n+++ b/x\n@@ -1 +1 @@\n```\n\nLet me know if it works."

func TestExtract_WellFormed(t *testing.T) {
	diff, err := Extract(offByOneCompletion)
	require.NoError(t, err)
	require.Equal(t, "--- a/x\n+++ b/x\n@@ -1 +1 @@", diff)
}

func TestExtract_FirstBlockWins(t *testing.T) {
	completion := "```diff\nfirst\n```\n```diff\nsecond\n```"
	diff, err := Extract(completion)
	require.NoError(t, err)
	require.Equal(t, "first", diff)
}

func TestExtract_Unterminated(t *testing.T) {
	diff, err := Extract("```diff\n--- a/x\n+++ b/x\n")
	require.NoError(t, err)
	require.Equal(t, "--- a/x\n+++ b/x", diff)
}

func TestExtract_NoMarker(t *testing.T) {
	_, err := Extract("I could not figure out a fix for this issue.")
	require.ErrorIs(t, err, ErrNoDiffBlock)
}

func TestExtract_PlainFenceIsNotADiff(t *testing.T) {
	_, err := Extract("```\n--- a/x\n+++ b/x\n```")
	require.ErrorIs(t, err, ErrNoDiffBlock)
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract("```diff\n   \n```")
	require.ErrorIs(t, err, ErrEmptyDiff)
}

func TestExtractLenient_NoMarkerReturnsWholeText(t *testing.T) {
	completion := "I could not figure out a diff for this issue."
	require.Equal(t, completion, ExtractLenient(completion))
}

func TestExtractLenient_WellFormed(t *testing.T) {
	require.Equal(t, "--- a/x\n+++ b/x\n@@ -1 +1 @@", ExtractLenient(offByOneCompletion))
}

func TestContainsDiffKeyword(t *testing.T) {
	require.True(t, ContainsDiffKeyword(offByOneCompletion))
	require.True(t, ContainsDiffKeyword("no fenced block, but the word diff appears"))
	require.False(t, ContainsDiffKeyword("Sorry, I cannot help with that."))
}
