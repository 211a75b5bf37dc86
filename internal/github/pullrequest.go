package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v72/github"
)

// ErrNoCommits is returned when GitHub refuses a pull request because head and base are identical
var ErrNoCommits = errors.New("no commits between head and base")

// PullRequestService opens pull requests against a single repository
type PullRequestService struct {
	prService *github.PullRequestsService
	owner     string
	repo      string
}

// NewPullRequestService creates a PullRequestService for owner/repo
func NewPullRequestService(client *github.Client, owner string, repo string) *PullRequestService {
	return &PullRequestService{
		prService: client.PullRequests,
		owner:     owner,
		repo:      repo,
	}
}

// CreatePullRequest opens a pull request from head into base. Anything other than 201 Created is an error
func (prs *PullRequestService) CreatePullRequest(ctx context.Context, head, base, title, body string) (PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title:               github.Ptr(title),
		Head:                github.Ptr(head),
		Base:                github.Ptr(base),
		Body:                github.Ptr(body),
		MaintainerCanModify: github.Ptr(true),
	}

	pr, resp, err := prs.prService.Create(ctx, prs.owner, prs.repo, newPR)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) {
			for _, e := range ghErr.Errors {
				if e.Code == "custom" && strings.Contains(e.Message, "No commits between") {
					return PullRequest{}, fmt.Errorf("failed to create pull request: %w", ErrNoCommits)
				}
			}
		}
		return PullRequest{}, fmt.Errorf("failed to create pull request: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return PullRequest{}, fmt.Errorf("failed to create pull request: unexpected status %d", resp.StatusCode)
	}

	return PullRequest{
		Owner:  prs.owner,
		Repo:   prs.repo,
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Head:   head,
		Base:   base,
	}, nil
}
