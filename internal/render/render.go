// Package render substitutes ${{NAME}} placeholders in changelog
// templates with values derived from items and run metadata.
package render

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/releasekit/changelog-builder/internal/models"
)

// Values maps placeholder names to the text substituted for them.
type Values map[string]string

// placeholderPattern matches a ${{NAME}} token. Names are case-sensitive.
var placeholderPattern = regexp.MustCompile(`\$\{\{(\w+)\}\}`)

// Fill replaces every placeholder token in the template with its value.
// Tokens without a value are replaced with the empty string, never left
// intact. When trim is set, each substituted value is whitespace-trimmed.
func Fill(template string, values Values, trim bool) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[3 : len(token)-2]
		value := values[name]
		if trim {
			value = strings.TrimSpace(value)
		}
		return value
	})
}

// ItemValues derives the per-item placeholder set from a pull request or
// synthesized commit item.
func ItemValues(item models.PullRequestInfo) Values {
	values := Values{
		"NUMBER":      strconv.Itoa(item.Number),
		"TITLE":       item.Title,
		"URL":         item.HTMLURL,
		"AUTHOR":      item.Author,
		"AUTHOR_NAME": item.AuthorName,
		"LABELS":      strings.Join(item.Labels, ", "),
		"MILESTONE":   item.Milestone,
		"BODY":        item.Body,
		"ASSIGNEES":   strings.Join(item.Assignees, ", "),
		"REVIEWERS":   strings.Join(item.RequestedReviewers, ", "),
		"APPROVERS":   strings.Join(item.ApprovedReviewers, ", "),
		"BASE_BRANCH": item.BaseBranch,
		"MERGE_SHA":   item.MergeCommitSHA,
		"STATUS":      string(item.Status),
		"CREATED_AT":  item.CreatedAt.Format(time.RFC3339),
	}
	if item.MergedAt != nil {
		values["MERGED_AT"] = item.MergedAt.Format(time.RFC3339)
	}
	return values
}

// KnownProperty reports whether name resolves to an item field without
// the body fallback.
func KnownProperty(name string) bool {
	switch name {
	case "title", "", "body", "number", "author", "authorName", "milestone",
		"labels", "status", "branch", "baseBranch", "mergeCommitSha":
		return true
	}
	return false
}

// RetrieveProperty returns the named item property used as the source of
// a label-extraction or custom-placeholder rule. Unknown property names
// fall back to the body with a warning; they never fail the rule.
func RetrieveProperty(item models.PullRequestInfo, name string, log *slog.Logger) string {
	switch name {
	case "title", "":
		return item.Title
	case "body":
		return item.Body
	case "number":
		return strconv.Itoa(item.Number)
	case "author":
		return item.Author
	case "authorName":
		return item.AuthorName
	case "milestone":
		return item.Milestone
	case "labels":
		return strings.Join(item.Labels, ", ")
	case "status":
		return string(item.Status)
	case "branch", "baseBranch":
		return item.BaseBranch
	case "mergeCommitSha":
		return item.MergeCommitSHA
	default:
		if log != nil {
			log.Warn("unknown property, falling back to body", "property", name)
		}
		return item.Body
	}
}

// RunMeta carries the build-level data substituted into the root
// template after all sections are assembled.
type RunMeta struct {
	Owner         string
	Repo          string
	FromTag       *models.TagInfo
	ToTag         *models.TagInfo
	Categorized   string
	Uncategorized string
	Ignored       string
	Open          string

	CategorizedCount   int
	UncategorizedCount int
	IgnoredCount       int
	OpenCount          int

	Diff models.DiffInfo
}

// RunValues derives the run-level placeholder set. Missing optional data
// (an unresolved tag, an absent tag date) renders as empty text.
func RunValues(meta RunMeta) Values {
	values := Values{
		"OWNER":               meta.Owner,
		"REPO":                meta.Repo,
		"CHANGELOG":           meta.Categorized,
		"UNCATEGORIZED":       meta.Uncategorized,
		"IGNORED":             meta.Ignored,
		"OPEN":                meta.Open,
		"CATEGORIZED_COUNT":   strconv.Itoa(meta.CategorizedCount),
		"UNCATEGORIZED_COUNT": strconv.Itoa(meta.UncategorizedCount),
		"IGNORED_COUNT":       strconv.Itoa(meta.IgnoredCount),
		"OPEN_COUNT":          strconv.Itoa(meta.OpenCount),
		"CHANGED_FILES":       strconv.Itoa(meta.Diff.ChangedFiles),
		"ADDITIONS":           strconv.Itoa(meta.Diff.Additions),
		"DELETIONS":           strconv.Itoa(meta.Diff.Deletions),
		"CHANGES":             strconv.Itoa(meta.Diff.Changes),
		"COMMITS":             strconv.Itoa(meta.Diff.Commits),
	}

	if meta.FromTag != nil {
		values["FROM_TAG"] = meta.FromTag.DisplayName()
		if meta.FromTag.Date != nil {
			values["FROM_TAG_DATE"] = meta.FromTag.Date.Format(time.RFC3339)
		}
	}
	if meta.ToTag != nil {
		values["TO_TAG"] = meta.ToTag.DisplayName()
		if meta.ToTag.Date != nil {
			values["TO_TAG_DATE"] = meta.ToTag.Date.Format(time.RFC3339)
		}
	}
	if meta.FromTag != nil && meta.ToTag != nil {
		if meta.FromTag.Date != nil && meta.ToTag.Date != nil {
			days := int(meta.ToTag.Date.Sub(*meta.FromTag.Date).Hours() / 24)
			values["DAYS_SINCE"] = strconv.Itoa(days)
		}
		if meta.Owner != "" && meta.Repo != "" {
			values["RELEASE_DIFF"] = "https://github.com/" + meta.Owner + "/" + meta.Repo +
				"/compare/" + meta.FromTag.DisplayName() + "..." + meta.ToTag.DisplayName()
		}
	}

	return values
}
