// Package classify places rendered changelog items into the configured
// category tree, honoring ignore precedence, consuming categories,
// catch-all buckets, and the duplicate filter.
package classify

import (
	"log/slog"
	"strings"

	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/internal/render"
	"github.com/releasekit/changelog-builder/internal/transform"
	"github.com/releasekit/changelog-builder/pkg/config"
)

// Item pairs a normalized record with its rendered template block.
type Item struct {
	Info     models.PullRequestInfo
	Rendered string
}

// CategoryNode mirrors one configured category and collects the rendered
// blocks placed into it. Items keep the order they arrived in from the
// sort stage.
type CategoryNode struct {
	Title    string
	Items    []string
	Children []*CategoryNode
}

// Result is the outcome of classifying one item list.
type Result struct {
	Nodes         []*CategoryNode
	Uncategorized []string
	Ignored       []string
	Open          []string

	// CategorizedCount is the number of distinct items that landed in at
	// least one category bucket, counting multi-bucket items once.
	CategorizedCount int
}

// MatchesLabels reports whether the item labels satisfy the rule labels.
// Any-of semantics by default; exhaustive requests all-of, as used by
// label-extractor and base-branch rule contexts. Comparison is
// case-insensitive.
func MatchesLabels(itemLabels, ruleLabels []string, exhaustive bool) bool {
	if len(ruleLabels) == 0 {
		return false
	}
	for _, rule := range ruleLabels {
		found := false
		for _, label := range itemLabels {
			if strings.EqualFold(label, rule) {
				found = true
				break
			}
		}
		if exhaustive && !found {
			return false
		}
		if !exhaustive && found {
			return true
		}
	}
	return exhaustive
}

// Classify runs every item through the category tree. Ignore labels win
// over everything; open items are tracked in a parallel bucket when
// includeOpen is set; the duplicate filter collapses items sharing a
// derived key before any categorization happens.
func Classify(items []Item, categories []config.Category, ignoreLabels []string, duplicateFilter *transform.Transformer, includeOpen bool, log *slog.Logger) *Result {
	result := &Result{
		Nodes: buildNodes(categories),
	}

	items = Deduplicate(items, duplicateFilter, log)

	for _, item := range items {
		if includeOpen && item.Info.Status == models.PullRequestStatusOpen {
			result.Open = append(result.Open, item.Rendered)
		}

		if MatchesLabels(item.Info.Labels, ignoreLabels, false) {
			result.Ignored = append(result.Ignored, item.Rendered)
			continue
		}

		if classifyAtLevel(item, item.Info.Labels, categories, result.Nodes) {
			result.CategorizedCount++
		} else {
			result.Uncategorized = append(result.Uncategorized, item.Rendered)
		}
	}

	return result
}

func buildNodes(categories []config.Category) []*CategoryNode {
	nodes := make([]*CategoryNode, len(categories))
	for i, cat := range categories {
		nodes[i] = &CategoryNode{
			Title:    cat.Title,
			Children: buildNodes(cat.Categories),
		}
	}
	return nodes
}

// classifyAtLevel tests the item against each category at one nesting
// level, in declared order. A category with no labels is the catch-all
// for items unmatched by its preceding siblings. Matched categories
// recurse into their children with the pre-consumption label set, so
// nested matches stay independent additions. A consuming category
// removes its matched labels from consideration by later siblings.
func classifyAtLevel(item Item, labels []string, categories []config.Category, nodes []*CategoryNode) bool {
	matchedLevel := false
	working := labels

	for i, cat := range categories {
		var matched bool
		if len(cat.Labels) == 0 {
			matched = !matchedLevel
		} else {
			matched = MatchesLabels(working, cat.Labels, false)
		}
		if !matched {
			continue
		}

		nodes[i].Items = append(nodes[i].Items, item.Rendered)
		matchedLevel = true

		if len(cat.Categories) > 0 {
			classifyAtLevel(item, working, cat.Categories, nodes[i].Children)
		}

		if cat.Consume {
			working = withoutLabels(working, cat.Labels)
		}
	}

	return matchedLevel
}

func withoutLabels(labels, remove []string) []string {
	kept := make([]string, 0, len(labels))
	for _, label := range labels {
		removed := false
		for _, r := range remove {
			if strings.EqualFold(label, r) {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, label)
		}
	}
	return kept
}

// Deduplicate collapses items whose duplicate-filter key collides. The
// later item in input order replaces the earlier one's slot: position is
// the earlier item's, labels and rendered text are the later item's.
// This preserves the documented last-write-wins behavior, so the final
// categorization follows whichever labels the later duplicate carries.
func Deduplicate(items []Item, filter *transform.Transformer, log *slog.Logger) []Item {
	if filter == nil {
		return items
	}

	property := "title"
	if len(filter.OnProperty) > 0 {
		property = filter.OnProperty[0]
	}

	out := make([]Item, 0, len(items))
	index := make(map[string]int)
	for _, item := range items {
		source := render.RetrieveProperty(item.Info, property, log)
		key, ok := filter.Apply(source)
		if !ok {
			out = append(out, item)
			continue
		}
		if pos, seen := index[key]; seen {
			out[pos] = item
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}
