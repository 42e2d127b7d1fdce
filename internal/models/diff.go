package models

import "time"

// CommitInfo describes a single commit in the compared range.
type CommitInfo struct {
	SHA           string     `json:"sha"`
	Summary       string     `json:"summary"`
	Message       string     `json:"message,omitempty"`
	Author        string     `json:"author,omitempty"`
	AuthorName    string     `json:"author_name,omitempty"`
	AuthorDate    *time.Time `json:"author_date,omitempty"`
	Committer     string     `json:"committer,omitempty"`
	CommitterName string     `json:"committer_name,omitempty"`
	CommitDate    *time.Time `json:"commit_date,omitempty"`
}

// DiffInfo summarizes the changes between the from and to refs.
type DiffInfo struct {
	ChangedFiles int          `json:"changed_files"`
	Additions    int          `json:"additions"`
	Deletions    int          `json:"deletions"`
	Changes      int          `json:"changes"`
	Commits      int          `json:"commits"`
	CommitInfo   []CommitInfo `json:"commit_info,omitempty"`
}
