package builder

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/pkg/config"
)

// SortItems orders items by the configured sort spec. The sort is
// stable: items with equal keys keep their relative input order. The
// input slice is left untouched.
func SortItems(items []models.PullRequestInfo, spec config.Sort) []models.PullRequestInfo {
	out := make([]models.PullRequestInfo, len(items))
	copy(out, items)

	var less func(a, b models.PullRequestInfo) bool
	switch spec.OnProperty {
	case config.SortPropertyTitle:
		collator := collate.New(language.English)
		less = func(a, b models.PullRequestInfo) bool {
			return collator.CompareString(a.Title, b.Title) < 0
		}
	default:
		less = func(a, b models.PullRequestInfo) bool {
			return sortDate(a).Before(sortDate(b))
		}
	}

	if spec.Order == config.SortOrderDescending {
		ascending := less
		less = func(a, b models.PullRequestInfo) bool {
			return ascending(b, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// sortDate is the merge date, falling back to the creation date for
// items that never merged.
func sortDate(item models.PullRequestInfo) time.Time {
	if item.MergedAt != nil {
		return *item.MergedAt
	}
	return item.CreatedAt
}
