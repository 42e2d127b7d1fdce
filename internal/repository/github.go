package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/releasekit/changelog-builder/internal/models"
)

const (
	// DefaultAPIEndpoint is the public GitHub REST endpoint; override
	// BaseURL for GitHub Enterprise or Gitea-compatible servers.
	DefaultAPIEndpoint = "https://api.github.com"

	// MaxPageSize is the largest page the REST API serves.
	MaxPageSize = 100

	defaultTimeout = 30 * time.Second
)

// GitHubClient fetches tags, pull requests, and diff summaries over the
// GitHub REST API.
type GitHubClient struct {
	Token      string
	Owner      string
	Repo       string
	BaseURL    string
	HTTPClient *http.Client
}

var _ Repository = (*GitHubClient)(nil)

// NewGitHubClient creates a client for the given repository. The token
// may be empty for public repositories at reduced rate limits.
func NewGitHubClient(token, owner, repo string) *GitHubClient {
	return &GitHubClient{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// WithBaseURL returns a client pointed at a different API root.
func (c *GitHubClient) WithBaseURL(baseURL string) *GitHubClient {
	out := *c
	out.BaseURL = baseURL
	return &out
}

func (c *GitHubClient) repoPath() string {
	return c.Owner + "/" + c.Repo
}

func (c *GitHubClient) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}
	return u
}

// get performs an authenticated GET with exponential backoff on
// transient failures (network errors, 5xx, rate limiting).
func (c *GitHubClient) get(ctx context.Context, urlStr string, out interface{}) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, urlStr))
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
			return fmt.Errorf("rate limited (status %d)", resp.StatusCode)
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error (status %d)", resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("API error: %s (status %d)", string(body), resp.StatusCode))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(operation, policy)
}

type apiTag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type apiUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

type apiLabel struct {
	Name string `json:"name"`
}

type apiMilestone struct {
	Title string `json:"title"`
}

type apiPullRequest struct {
	Number             int           `json:"number"`
	Title              string        `json:"title"`
	HTMLURL            string        `json:"html_url"`
	Body               string        `json:"body"`
	CreatedAt          time.Time     `json:"created_at"`
	MergedAt           *time.Time    `json:"merged_at"`
	MergeCommitSHA     string        `json:"merge_commit_sha"`
	User               apiUser       `json:"user"`
	Labels             []apiLabel    `json:"labels"`
	Milestone          *apiMilestone `json:"milestone"`
	Assignees          []apiUser     `json:"assignees"`
	RequestedReviewers []apiUser     `json:"requested_reviewers"`
	State              string        `json:"state"`
	Base               struct {
		Ref  string `json:"ref"`
		Repo struct {
			FullName string `json:"full_name"`
		} `json:"repo"`
	} `json:"base"`
}

type apiReview struct {
	ID          int64      `json:"id"`
	HTMLURL     string     `json:"html_url"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	User        apiUser    `json:"user"`
}

type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type apiCompare struct {
	TotalCommits int `json:"total_commits"`
	Commits      []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name  string    `json:"name"`
				Email string    `json:"email"`
				Date  time.Time `json:"date"`
			} `json:"author"`
			Committer struct {
				Name  string    `json:"name"`
				Email string    `json:"email"`
				Date  time.Time `json:"date"`
			} `json:"committer"`
		} `json:"commit"`
	} `json:"commits"`
	Files []struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Changes   int `json:"changes"`
	} `json:"files"`
}

// ListTags returns up to maxTags tags. Dates are not populated here;
// ResolveTagDate fills them on demand since each costs one commit fetch.
func (c *GitHubClient) ListTags(ctx context.Context, maxTags int) ([]models.TagInfo, error) {
	var all []models.TagInfo
	for page := 1; ; page++ {
		urlStr := c.buildURL("/repos/"+c.repoPath()+"/tags", map[string]string{
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		})

		var tagPage []apiTag
		if err := c.get(ctx, urlStr, &tagPage); err != nil {
			return nil, fmt.Errorf("failed to fetch tags: %w", err)
		}
		for _, t := range tagPage {
			all = append(all, models.TagInfo{Name: t.Name, Commit: t.Commit.SHA})
		}
		if len(tagPage) < MaxPageSize || (maxTags > 0 && len(all) >= maxTags) {
			break
		}
	}
	if maxTags > 0 && len(all) > maxTags {
		all = all[:maxTags]
	}
	return all, nil
}

// ResolveTagDate fetches the commit date of a tag's target commit.
func (c *GitHubClient) ResolveTagDate(ctx context.Context, tag models.TagInfo) (*time.Time, error) {
	if tag.Commit == "" {
		return nil, nil
	}
	var commit apiCommit
	urlStr := c.buildURL("/repos/"+c.repoPath()+"/commits/"+tag.Commit, nil)
	if err := c.get(ctx, urlStr, &commit); err != nil {
		return nil, fmt.Errorf("failed to resolve tag date for %s: %w", tag.Name, err)
	}
	date := commit.Commit.Committer.Date
	return &date, nil
}

// PullRequestsBetween lists merged pull requests whose merge date falls
// inside the (from, to] date window. Both tags need resolved dates; an
// unresolved window falls back to returning the newest merged items.
func (c *GitHubClient) PullRequestsBetween(ctx context.Context, from, to models.TagInfo, maxCount int) ([]models.PullRequestInfo, error) {
	var items []models.PullRequestInfo
	for page := 1; ; page++ {
		urlStr := c.buildURL("/repos/"+c.repoPath()+"/pulls", map[string]string{
			"state":     "closed",
			"sort":      "updated",
			"direction": "desc",
			"per_page":  strconv.Itoa(MaxPageSize),
			"page":      strconv.Itoa(page),
		})

		var prPage []apiPullRequest
		if err := c.get(ctx, urlStr, &prPage); err != nil {
			return nil, fmt.Errorf("failed to fetch pull requests: %w", err)
		}

		for _, pr := range prPage {
			if pr.MergedAt == nil {
				continue
			}
			if !inWindow(*pr.MergedAt, from.Date, to.Date) {
				continue
			}
			items = append(items, c.mapPullRequest(pr))
			if maxCount > 0 && len(items) >= maxCount {
				return items, nil
			}
		}
		if len(prPage) < MaxPageSize {
			break
		}
	}
	return items, nil
}

// OpenPullRequests lists currently open pull requests, newest first.
func (c *GitHubClient) OpenPullRequests(ctx context.Context, maxCount int) ([]models.PullRequestInfo, error) {
	var items []models.PullRequestInfo
	for page := 1; ; page++ {
		urlStr := c.buildURL("/repos/"+c.repoPath()+"/pulls", map[string]string{
			"state":     "open",
			"sort":      "created",
			"direction": "desc",
			"per_page":  strconv.Itoa(MaxPageSize),
			"page":      strconv.Itoa(page),
		})

		var prPage []apiPullRequest
		if err := c.get(ctx, urlStr, &prPage); err != nil {
			return nil, fmt.Errorf("failed to fetch open pull requests: %w", err)
		}
		for _, pr := range prPage {
			items = append(items, c.mapPullRequest(pr))
			if maxCount > 0 && len(items) >= maxCount {
				return items, nil
			}
		}
		if len(prPage) < MaxPageSize {
			break
		}
	}
	return items, nil
}

// PullRequestReviews lists the submitted reviews for one pull request.
func (c *GitHubClient) PullRequestReviews(ctx context.Context, number int) ([]models.ReviewInfo, error) {
	urlStr := c.buildURL(fmt.Sprintf("/repos/%s/pulls/%d/reviews", c.repoPath(), number), map[string]string{
		"per_page": strconv.Itoa(MaxPageSize),
	})

	var reviews []apiReview
	if err := c.get(ctx, urlStr, &reviews); err != nil {
		return nil, fmt.Errorf("failed to fetch reviews for #%d: %w", number, err)
	}

	out := make([]models.ReviewInfo, len(reviews))
	for i, r := range reviews {
		out[i] = models.ReviewInfo{
			ID:          r.ID,
			HTMLURL:     r.HTMLURL,
			SubmittedAt: r.SubmittedAt,
			Author:      r.User.Login,
			Body:        r.Body,
			State:       r.State,
		}
	}
	return out, nil
}

// DiffInfo compares the two tags and summarizes the change set.
func (c *GitHubClient) DiffInfo(ctx context.Context, from, to models.TagInfo) (models.DiffInfo, error) {
	var compare apiCompare
	urlStr := c.buildURL("/repos/"+c.repoPath()+"/compare/"+from.Name+"..."+to.Name, nil)
	if err := c.get(ctx, urlStr, &compare); err != nil {
		return models.DiffInfo{}, fmt.Errorf("failed to compare %s...%s: %w", from.Name, to.Name, err)
	}

	diff := models.DiffInfo{
		ChangedFiles: len(compare.Files),
		Commits:      compare.TotalCommits,
	}
	for _, f := range compare.Files {
		diff.Additions += f.Additions
		diff.Deletions += f.Deletions
		diff.Changes += f.Changes
	}
	for _, commit := range compare.Commits {
		summary, message, _ := cutMessage(commit.Commit.Message)
		authorDate := commit.Commit.Author.Date
		commitDate := commit.Commit.Committer.Date
		diff.CommitInfo = append(diff.CommitInfo, models.CommitInfo{
			SHA:           commit.SHA,
			Summary:       summary,
			Message:       message,
			Author:        commit.Commit.Author.Email,
			AuthorName:    commit.Commit.Author.Name,
			AuthorDate:    &authorDate,
			Committer:     commit.Commit.Committer.Email,
			CommitterName: commit.Commit.Committer.Name,
			CommitDate:    &commitDate,
		})
	}
	return diff, nil
}

func (c *GitHubClient) mapPullRequest(pr apiPullRequest) models.PullRequestInfo {
	status := models.PullRequestStatusOpen
	if pr.MergedAt != nil {
		status = models.PullRequestStatusMerged
	}

	item := models.PullRequestInfo{
		Number:             pr.Number,
		Title:              pr.Title,
		HTMLURL:            pr.HTMLURL,
		BaseBranch:         pr.Base.Ref,
		CreatedAt:          pr.CreatedAt,
		MergedAt:           pr.MergedAt,
		MergeCommitSHA:     pr.MergeCommitSHA,
		Author:             pr.User.Login,
		AuthorName:         pr.User.Name,
		RepoName:           pr.Base.Repo.FullName,
		Body:               pr.Body,
		Status:             status,
		Labels:             make([]string, 0, len(pr.Labels)),
		Assignees:          mapLogins(pr.Assignees),
		RequestedReviewers: mapLogins(pr.RequestedReviewers),
	}
	for _, l := range pr.Labels {
		item.Labels = append(item.Labels, l.Name)
	}
	if pr.Milestone != nil {
		item.Milestone = pr.Milestone.Title
	}
	return item
}

func mapLogins(users []apiUser) []string {
	if len(users) == 0 {
		return nil
	}
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Login
	}
	return out
}

func inWindow(mergedAt time.Time, from, to *time.Time) bool {
	if from != nil && !mergedAt.After(*from) {
		return false
	}
	if to != nil && mergedAt.After(*to) {
		return false
	}
	return true
}

func cutMessage(message string) (summary, body string, hasBody bool) {
	for i := 0; i < len(message); i++ {
		if message[i] == '\n' {
			return message[:i], trimLeadingNewlines(message[i+1:]), true
		}
	}
	return message, "", false
}

func trimLeadingNewlines(s string) string {
	for len(s) > 0 && (s[0] == '\n' || s[0] == '\r') {
		s = s[1:]
	}
	return s
}
