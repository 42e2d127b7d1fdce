// Package repository provides the data-source backends a changelog
// build consumes: tags, pull requests, and diff summaries. The pipeline
// itself never performs I/O; it sees only the materialized lists these
// backends return.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/releasekit/changelog-builder/internal/models"
)

// ErrNotFound is returned when a requested ref, tag, or resource does
// not exist in the backing repository.
var ErrNotFound = errors.New("not found")

// Repository is the capability surface a build needs. GitHub and local
// git implement it; the orchestration depends only on this interface.
type Repository interface {
	// ListTags returns up to maxTags tag records, unordered; the tag
	// resolver owns ordering.
	ListTags(ctx context.Context, maxTags int) ([]models.TagInfo, error)

	// PullRequestsBetween returns the merged items in the (from, to]
	// window, newest update first, capped at maxCount. Backends without
	// a pull request concept synthesize items from commits.
	PullRequestsBetween(ctx context.Context, from, to models.TagInfo, maxCount int) ([]models.PullRequestInfo, error)

	// DiffInfo summarizes the changes between the two tags.
	DiffInfo(ctx context.Context, from, to models.TagInfo) (models.DiffInfo, error)
}

// SynthesizeFromCommit maps a raw commit onto the normalized item shape
// used by the pipeline. Commit items carry number zero; duplicate
// numbers are expected and intentionally not deduplicated here.
func SynthesizeFromCommit(commit models.CommitInfo) models.PullRequestInfo {
	mergedAt := commit.CommitDate
	if mergedAt == nil {
		mergedAt = commit.AuthorDate
	}

	item := models.PullRequestInfo{
		Number:         0,
		Title:          commit.Summary,
		Body:           commit.Message,
		MergeCommitSHA: commit.SHA,
		Author:         commit.Author,
		AuthorName:     commit.AuthorName,
		MergedAt:       mergedAt,
		Status:         models.PullRequestStatusMerged,
	}
	if commit.AuthorDate != nil {
		item.CreatedAt = *commit.AuthorDate
	} else if mergedAt != nil {
		item.CreatedAt = *mergedAt
	}
	return item
}

// WithinBackTrackWindow reports whether a merge date lies within the
// configured maximum back-track window ending at the reference time.
func WithinBackTrackWindow(mergedAt *time.Time, reference time.Time, maxDays int) bool {
	if maxDays <= 0 || mergedAt == nil {
		return true
	}
	return reference.Sub(*mergedAt) <= time.Duration(maxDays)*24*time.Hour
}
