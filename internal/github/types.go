// Package github wraps the handful of GitHub REST calls needed to turn an issue into a pull request.
package github

import (
	"fmt"
	"strings"
)

// Issue is the part of a GitHub issue that a fix is generated from
type Issue struct {
	Owner  string
	Repo   string
	Number int

	Title string
	Body  string
	URL   string
}

// PullRequest is the record left behind by a successful run
type PullRequest struct {
	Owner  string
	Repo   string
	Number int

	Title string
	URL   string
	Head  string
	Base  string
}

// ParseRepository splits an "owner/name" repository identifier
func ParseRepository(qualifiedName string) (owner string, repo string, err error) {
	parts := strings.Split(qualifiedName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format '%s', expected owner/repo", qualifiedName)
	}
	return parts[0], parts[1], nil
}
