package models

import "time"

// PullRequestStatus represents the lifecycle state of a pull request
// when it enters the pipeline.
type PullRequestStatus string

const (
	PullRequestStatusOpen   PullRequestStatus = "open"
	PullRequestStatusMerged PullRequestStatus = "merged"
)

// ReviewInfo describes a single submitted review on a pull request.
type ReviewInfo struct {
	ID          int64      `json:"id"`
	HTMLURL     string     `json:"html_url,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Author      string     `json:"author"`
	Body        string     `json:"body,omitempty"`
	State       string     `json:"state,omitempty"`
}

// PullRequestInfo is the normalized changelog item. Both real pull
// requests and synthesized commit-mode items use this shape; commit-mode
// items carry Number == 0 and duplicates by number are expected.
type PullRequestInfo struct {
	Number             int               `json:"number"`
	Title              string            `json:"title"`
	HTMLURL            string            `json:"html_url"`
	BaseBranch         string            `json:"base_branch,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	MergedAt           *time.Time        `json:"merged_at,omitempty"`
	MergeCommitSHA     string            `json:"merge_commit_sha,omitempty"`
	Author             string            `json:"author"`
	AuthorName         string            `json:"author_name,omitempty"`
	RepoName           string            `json:"repo_name,omitempty"`
	Labels             []string          `json:"labels"`
	Milestone          string            `json:"milestone,omitempty"`
	Body               string            `json:"body,omitempty"`
	Assignees          []string          `json:"assignees,omitempty"`
	RequestedReviewers []string          `json:"requested_reviewers,omitempty"`
	ApprovedReviewers  []string          `json:"approved_reviewers,omitempty"`
	Reviews            []ReviewInfo      `json:"reviews,omitempty"`
	Status             PullRequestStatus `json:"status"`
}

// WithLabels returns a copy of the item carrying the given label set.
// The receiver's slice is left untouched so callers holding the original
// list never observe pipeline-stage mutations.
func (p PullRequestInfo) WithLabels(labels []string) PullRequestInfo {
	out := p
	out.Labels = make([]string, len(labels))
	copy(out.Labels, labels)
	return out
}
