package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *github.Client {
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)

	client := github.NewClient(nil)
	client.BaseURL = baseURL
	return client
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("octo/widgets")
	require.NoError(t, err)
	require.Equal(t, "octo", owner)
	require.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "octo", "octo/", "/widgets", "a/b/c"} {
		_, _, err := ParseRepository(bad)
		require.Error(t, err, bad)
	}
}

func TestGetIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/widgets/issues/42", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"number": 42, "title": "Parser bug", "body": "Fix off-by-one in parser", "html_url": "https://github.com/octo/widgets/issues/42"}`))
	})

	is := NewIssueService(newTestClient(t, mux), "octo", "widgets")
	issue, err := is.GetIssue(context.Background(), 42)

	require.NoError(t, err)
	require.Equal(t, Issue{
		Owner:  "octo",
		Repo:   "widgets",
		Number: 42,
		Title:  "Parser bug",
		Body:   "Fix off-by-one in parser",
		URL:    "https://github.com/octo/widgets/issues/42",
	}, issue)
}

func TestGetIssue_EmptyBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/widgets/issues/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number": 7, "title": "Nothing here", "body": null}`))
	})

	is := NewIssueService(newTestClient(t, mux), "octo", "widgets")
	issue, err := is.GetIssue(context.Background(), 7)

	require.ErrorIs(t, err, ErrEmptyIssue)
	require.Equal(t, 7, issue.Number)
}

func TestGetIssue_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/widgets/issues/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	is := NewIssueService(newTestClient(t, mux), "octo", "widgets")
	_, err := is.GetIssue(context.Background(), 9)

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmptyIssue)
}

func TestCreatePullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Auto Fix from Issue #42", req["title"])
		require.Equal(t, "issue-42", req["head"])
		require.Equal(t, "main", req["base"])
		require.Equal(t, "This PR fixes the issue #42 automatically.", req["body"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 5, "title": "Auto Fix from Issue #42", "html_url": "https://github.com/octo/widgets/pull/5"}`))
	})

	prs := NewPullRequestService(newTestClient(t, mux), "octo", "widgets")
	pr, err := prs.CreatePullRequest(context.Background(), "issue-42", "main", "Auto Fix from Issue #42", "This PR fixes the issue #42 automatically.")

	require.NoError(t, err)
	require.Equal(t, 5, pr.Number)
	require.Equal(t, "https://github.com/octo/widgets/pull/5", pr.URL)
	require.Equal(t, "issue-42", pr.Head)
	require.Equal(t, "main", pr.Base)
}

func TestCreatePullRequest_Non201IsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"number": 5}`))
	})

	prs := NewPullRequestService(newTestClient(t, mux), "octo", "widgets")
	_, err := prs.CreatePullRequest(context.Background(), "issue-42", "main", "title", "body")

	require.ErrorContains(t, err, "unexpected status 200")
}

func TestCreatePullRequest_NoCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed", "errors": [{"resource": "PullRequest", "code": "custom", "message": "No commits between main and issue-42"}]}`))
	})

	prs := NewPullRequestService(newTestClient(t, mux), "octo", "widgets")
	_, err := prs.CreatePullRequest(context.Background(), "issue-42", "main", "title", "body")

	require.ErrorIs(t, err, ErrNoCommits)
}
