package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v72/github"
)

// ErrEmptyIssue is returned when the issue exists but has nothing to act on
var ErrEmptyIssue = errors.New("issue has no body")

// IssueService reads issues from a single repository
type IssueService struct {
	issues *github.IssuesService
	owner  string
	repo   string
}

// NewIssueService creates an IssueService for owner/repo
func NewIssueService(client *github.Client, owner string, repo string) *IssueService {
	return &IssueService{
		issues: client.Issues,
		owner:  owner,
		repo:   repo,
	}
}

// GetIssue fetches a single issue. If the issue body is blank, the issue is returned together with ErrEmptyIssue
func (is *IssueService) GetIssue(ctx context.Context, number int) (Issue, error) {
	ghIssue, resp, err := is.issues.Get(ctx, is.owner, is.repo, number)
	if err != nil {
		return Issue{}, fmt.Errorf("failed to get issue #%d: %w", number, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Issue{}, fmt.Errorf("failed to get issue #%d: unexpected status %d", number, resp.StatusCode)
	}

	issue := Issue{
		Owner:  is.owner,
		Repo:   is.repo,
		Number: ghIssue.GetNumber(),
		Title:  ghIssue.GetTitle(),
		Body:   ghIssue.GetBody(),
		URL:    ghIssue.GetHTMLURL(),
	}
	if issue.Number == 0 {
		issue.Number = number
	}

	if strings.TrimSpace(issue.Body) == "" {
		return issue, ErrEmptyIssue
	}

	return issue, nil
}
