package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/internal/transform"
	"github.com/releasekit/changelog-builder/pkg/config"
)

func item(rendered string, labels ...string) Item {
	return Item{
		Info: models.PullRequestInfo{
			Title:  rendered,
			Labels: labels,
			Status: models.PullRequestStatusMerged,
		},
		Rendered: rendered,
	}
}

func TestMatchesLabels(t *testing.T) {
	tests := []struct {
		name       string
		itemLabels []string
		ruleLabels []string
		exhaustive bool
		want       bool
	}{
		{"any-of single hit", []string{"feature", "ui"}, []string{"feature"}, false, true},
		{"any-of no hit", []string{"docs"}, []string{"feature", "fix"}, false, false},
		{"any-of case-insensitive", []string{"Feature"}, []string{"feature"}, false, true},
		{"all-of complete", []string{"feature", "ui"}, []string{"feature", "ui"}, true, true},
		{"all-of partial", []string{"feature"}, []string{"feature", "ui"}, true, false},
		{"empty rules never match", []string{"feature"}, nil, false, false},
		{"empty rules never match exhaustive", []string{"feature"}, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesLabels(tt.itemLabels, tt.ruleLabels, tt.exhaustive))
		})
	}
}

func TestClassifyPlacesItemsByLabel(t *testing.T) {
	categories := []config.Category{
		{Title: "## Features", Labels: []string{"feature"}},
		{Title: "## Fixes", Labels: []string{"fix"}},
	}

	result := Classify([]Item{
		item("- feat one", "feature"),
		item("- fix one", "fix"),
		item("- chore one", "chore"),
	}, categories, nil, nil, false, nil)

	assert.Equal(t, []string{"- feat one"}, result.Nodes[0].Items)
	assert.Equal(t, []string{"- fix one"}, result.Nodes[1].Items)
	assert.Equal(t, []string{"- chore one"}, result.Uncategorized)
	assert.Equal(t, 2, result.CategorizedCount)
}

func TestClassifyIgnoreLabelsWinOverCategories(t *testing.T) {
	categories := []config.Category{
		{Title: "## Features", Labels: []string{"feature"}},
	}

	result := Classify([]Item{
		item("- hidden", "feature", "internal"),
	}, categories, []string{"internal"}, nil, false, nil)

	assert.Empty(t, result.Nodes[0].Items)
	assert.Equal(t, []string{"- hidden"}, result.Ignored)
	assert.Zero(t, result.CategorizedCount)
}

func TestClassifyMultiBucketItemCountedOnce(t *testing.T) {
	categories := []config.Category{
		{Title: "## Features", Labels: []string{"feature"}},
		{Title: "## UI", Labels: []string{"ui"}},
	}

	result := Classify([]Item{
		item("- both", "feature", "ui"),
	}, categories, nil, nil, false, nil)

	assert.Equal(t, []string{"- both"}, result.Nodes[0].Items)
	assert.Equal(t, []string{"- both"}, result.Nodes[1].Items)
	assert.Equal(t, 1, result.CategorizedCount)
}

func TestClassifyCatchAllCollectsLevelMisses(t *testing.T) {
	categories := []config.Category{
		{Title: "## Features", Labels: []string{"feature"}},
		{Title: "## Other"},
	}

	result := Classify([]Item{
		item("- feat", "feature"),
		item("- stray", "chore"),
	}, categories, nil, nil, false, nil)

	assert.Equal(t, []string{"- feat"}, result.Nodes[0].Items)
	assert.Equal(t, []string{"- stray"}, result.Nodes[1].Items)
	assert.Empty(t, result.Uncategorized)
}

func TestClassifyConsumeHidesLabelsFromLaterSiblings(t *testing.T) {
	categories := []config.Category{
		{Title: "## Core", Labels: []string{"core"}, Consume: true},
		{Title: "## Everything Core", Labels: []string{"core"}},
	}

	result := Classify([]Item{
		item("- core change", "core"),
	}, categories, nil, nil, false, nil)

	assert.Equal(t, []string{"- core change"}, result.Nodes[0].Items)
	assert.Empty(t, result.Nodes[1].Items)
}

func TestClassifyNestedConsumeKeepsChildLabelsIntact(t *testing.T) {
	// An item labeled for two consuming top-level areas lands in both, and
	// each area's child buckets still see the full pre-consumption labels.
	categories := []config.Category{
		{
			Title:   "## Core",
			Labels:  []string{"core"},
			Consume: true,
			Categories: []config.Category{
				{Title: "### Core Features", Labels: []string{"feature"}},
			},
		},
		{
			Title:   "## Mobile",
			Labels:  []string{"mobile"},
			Consume: true,
			Categories: []config.Category{
				{Title: "### Mobile Features", Labels: []string{"feature"}},
			},
		},
	}

	result := Classify([]Item{
		item("- shared feat", "core", "mobile", "feature"),
	}, categories, nil, nil, false, nil)

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, []string{"- shared feat"}, result.Nodes[0].Items)
	assert.Equal(t, []string{"- shared feat"}, result.Nodes[0].Children[0].Items)
	assert.Equal(t, []string{"- shared feat"}, result.Nodes[1].Items)
	assert.Equal(t, []string{"- shared feat"}, result.Nodes[1].Children[0].Items)
	assert.Equal(t, 1, result.CategorizedCount)
}

func TestClassifyOpenBucket(t *testing.T) {
	open := Item{
		Info: models.PullRequestInfo{
			Title:  "- wip",
			Labels: []string{"feature"},
			Status: models.PullRequestStatusOpen,
		},
		Rendered: "- wip",
	}
	categories := []config.Category{
		{Title: "## Features", Labels: []string{"feature"}},
	}

	withOpen := Classify([]Item{open}, categories, nil, nil, true, nil)
	assert.Equal(t, []string{"- wip"}, withOpen.Open)
	assert.Equal(t, []string{"- wip"}, withOpen.Nodes[0].Items)

	withoutOpen := Classify([]Item{open}, categories, nil, nil, false, nil)
	assert.Empty(t, withoutOpen.Open)
}

func TestDeduplicateLastWriteWinsInEarlierSlot(t *testing.T) {
	filter := transform.Compile(config.Regex{
		Pattern: "\\[(\\w+-\\d+)\\]",
		Method:  transform.MethodRegexr,
	}, nil)
	require.NotNil(t, filter)

	out := Deduplicate([]Item{
		item("- [ABC-1] first take"),
		item("- unrelated"),
		item("- [ABC-1] second take"),
	}, filter, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "- [ABC-1] second take", out[0].Rendered)
	assert.Equal(t, "- unrelated", out[1].Rendered)
}

func TestDeduplicateNoFilterIsPassthrough(t *testing.T) {
	in := []Item{item("- a"), item("- a")}
	assert.Equal(t, in, Deduplicate(in, nil, nil))
}
