package repository

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	gitlog "github.com/tsuyoshiwada/go-gitlog"

	"github.com/releasekit/changelog-builder/internal/models"
)

// LocalGitRepository reads tags and commits from a git work tree on
// disk. Pull-request items are synthesized from commits, so builds from
// this backend run in commit mode.
type LocalGitRepository struct {
	Path string
}

var _ Repository = (*LocalGitRepository)(nil)

// NewLocalGitRepository creates a backend over the given work tree.
func NewLocalGitRepository(path string) *LocalGitRepository {
	if path == "" {
		path = "."
	}
	return &LocalGitRepository{Path: path}
}

// ListTags reads tags with their target commit and creation date.
func (r *LocalGitRepository) ListTags(ctx context.Context, maxTags int) ([]models.TagInfo, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", r.Path, "for-each-ref",
		"--format=%(refname:short)%09%(objectname)%09%(creatordate:iso-strict)", "refs/tags")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git for-each-ref: %w", err)
	}

	var result []models.TagInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		tag := models.TagInfo{Name: fields[0]}
		if len(fields) > 1 {
			tag.Commit = fields[1]
		}
		if len(fields) > 2 {
			if date, err := time.Parse(time.RFC3339, fields[2]); err == nil {
				tag.Date = &date
			}
		}
		result = append(result, tag)
		if maxTags > 0 && len(result) >= maxTags {
			break
		}
	}
	return result, nil
}

// PullRequestsBetween synthesizes one item per commit in the range.
func (r *LocalGitRepository) PullRequestsBetween(ctx context.Context, from, to models.TagInfo, maxCount int) ([]models.PullRequestInfo, error) {
	commits, err := r.commitsBetween(from, to)
	if err != nil {
		return nil, err
	}

	items := make([]models.PullRequestInfo, 0, len(commits))
	for _, commit := range commits {
		items = append(items, SynthesizeFromCommit(commit))
		if maxCount > 0 && len(items) >= maxCount {
			break
		}
	}
	return items, nil
}

// DiffInfo combines git diff --shortstat with the commit log.
func (r *LocalGitRepository) DiffInfo(ctx context.Context, from, to models.TagInfo) (models.DiffInfo, error) {
	commits, err := r.commitsBetween(from, to)
	if err != nil {
		return models.DiffInfo{}, err
	}

	diff := models.DiffInfo{
		Commits:    len(commits),
		CommitInfo: commits,
	}

	cmd := exec.CommandContext(ctx, "git", "-C", r.Path, "diff", "--shortstat",
		fmt.Sprintf("%s..%s", from.Name, to.Name))
	out, err := cmd.Output()
	if err != nil {
		return diff, fmt.Errorf("git diff --shortstat: %w", err)
	}

	diff.ChangedFiles, diff.Additions, diff.Deletions = parseShortStat(string(out))
	diff.Changes = diff.Additions + diff.Deletions
	return diff, nil
}

func (r *LocalGitRepository) commitsBetween(from, to models.TagInfo) ([]models.CommitInfo, error) {
	git := gitlog.New(&gitlog.Config{Path: r.Path})

	var rev gitlog.RevArgs
	if from.Name != "" {
		rev = &gitlog.RevRange{Old: from.Name, New: to.Name}
	} else if to.Name != "" {
		rev = &gitlog.Rev{Ref: to.Name}
	}

	commits, err := git.Log(rev, nil)
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	out := make([]models.CommitInfo, 0, len(commits))
	for _, c := range commits {
		info := models.CommitInfo{
			Summary: c.Subject,
			Message: c.Body,
		}
		if c.Hash != nil {
			info.SHA = c.Hash.Long
		}
		if c.Author != nil {
			authorDate := c.Author.Date
			info.Author = c.Author.Email
			info.AuthorName = c.Author.Name
			info.AuthorDate = &authorDate
		}
		if c.Committer != nil {
			commitDate := c.Committer.Date
			info.Committer = c.Committer.Email
			info.CommitterName = c.Committer.Name
			info.CommitDate = &commitDate
		}
		out = append(out, info)
	}
	return out, nil
}

var shortStatPattern = regexp.MustCompile(`(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

func parseShortStat(out string) (files, additions, deletions int) {
	matches := shortStatPattern.FindStringSubmatch(out)
	if matches == nil {
		return 0, 0, 0
	}
	files, _ = strconv.Atoi(matches[1])
	if matches[2] != "" {
		additions, _ = strconv.Atoi(matches[2])
	}
	if matches[3] != "" {
		deletions, _ = strconv.Atoi(matches[3])
	}
	return files, additions, deletions
}
