// Package builder wires the changelog pipeline into a single pure pass:
// sort, extract labels, compute custom placeholders, render item
// templates, classify, assemble sections, and fill the root template.
package builder

import (
	"log/slog"
	"strings"

	"github.com/releasekit/changelog-builder/internal/classify"
	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/internal/render"
	"github.com/releasekit/changelog-builder/internal/transform"
	"github.com/releasekit/changelog-builder/pkg/config"
)

// Builder runs changelog builds. A Builder holds no state between Build
// calls beyond its logger; compiled rules live for a single invocation,
// so constructing a Builder is the explicit reset point.
type Builder struct {
	log *slog.Logger
}

// New creates a Builder. A nil logger disables pipeline warnings.
func New(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// Build produces the changelog text for the given diff summary, item
// list, and options. It is deterministic: identical, unmutated inputs
// yield identical output.
func (b *Builder) Build(diff models.DiffInfo, items []models.PullRequestInfo, options models.ReleaseNotesOptions) string {
	cfg := options.Configuration
	cfg.Normalize()

	sorted := SortItems(items, cfg.Sort)
	extracted := b.extractLabels(sorted, cfg.LabelExtractor)
	rendered := b.renderItems(extracted, options.Mode, cfg)

	var duplicateFilter *transform.Transformer
	if cfg.DuplicateFilter != nil {
		duplicateFilter = transform.Compile(*cfg.DuplicateFilter, b.log)
	}

	result := classify.Classify(rendered, cfg.Categories, cfg.IgnoreLabels,
		duplicateFilter, options.IncludeOpen, b.log)

	meta := render.RunMeta{
		Owner:              options.Owner,
		Repo:               options.Repo,
		FromTag:            options.FromTag,
		ToTag:              options.ToTag,
		Categorized:        assembleSections(result.Nodes),
		Uncategorized:      strings.Join(result.Uncategorized, "\n"),
		Ignored:            strings.Join(result.Ignored, "\n"),
		Open:               strings.Join(result.Open, "\n"),
		CategorizedCount:   result.CategorizedCount,
		UncategorizedCount: len(result.Uncategorized),
		IgnoredCount:       len(result.Ignored),
		OpenCount:          len(result.Open),
		Diff:               diff,
	}

	template := cfg.Template
	if result.CategorizedCount == 0 && len(result.Uncategorized) == 0 && len(result.Ignored) == 0 {
		// Only a completely empty build falls back; a single empty
		// section never does.
		template = cfg.EmptyTemplate
	}
	return render.Fill(template, render.RunValues(meta), cfg.TrimValues)
}

// extractLabels runs every extractor rule in order against its source
// property and appends each derived label to a copy of the item's label
// set. The caller's items are never mutated.
func (b *Builder) extractLabels(items []models.PullRequestInfo, rules []config.Regex) []models.PullRequestInfo {
	if len(rules) == 0 {
		return items
	}

	compiled := make([]*transform.Transformer, len(rules))
	for i, rule := range rules {
		compiled[i] = transform.Compile(rule, b.log)
	}

	out := make([]models.PullRequestInfo, len(items))
	for i, item := range items {
		labels := item.Labels
		for _, t := range compiled {
			if t == nil {
				continue
			}
			source := render.RetrieveProperty(item, firstProperty(t.OnProperty), b.log)
			labels = append(labels[:len(labels):len(labels)], t.ApplyAll(source)...)
		}
		out[i] = item.WithLabels(labels)
	}
	return out
}

func firstProperty(properties []string) string {
	if len(properties) > 0 {
		return properties[0]
	}
	return "title"
}

// customValues computes the configured custom placeholders for one item,
// left to right. A later placeholder may name an earlier-derived value
// as its source; unknown sources fall back to the item body.
func (b *Builder) customValues(item models.PullRequestInfo, placeholders []config.CustomPlaceholder) render.Values {
	values := render.Values{}
	for _, ph := range placeholders {
		t := transform.Compile(ph.Transformer, b.log)
		if t == nil {
			values[ph.Name] = ""
			continue
		}

		var source string
		if render.KnownProperty(ph.Source) {
			source = render.RetrieveProperty(item, ph.Source, b.log)
		} else if derived, ok := values[ph.Source]; ok {
			source = derived
		} else {
			source = render.RetrieveProperty(item, ph.Source, b.log)
		}

		derived, ok := t.Apply(source)
		if !ok {
			derived = ""
		}
		values[ph.Name] = derived
	}
	return values
}

// renderItems fills the per-item template for every item and applies the
// configured post-render transformers to each block.
func (b *Builder) renderItems(items []models.PullRequestInfo, mode models.Mode, cfg config.Configuration) []classify.Item {
	transformers := make([]*transform.Transformer, 0, len(cfg.Transformers))
	for _, rule := range cfg.Transformers {
		if t := transform.Compile(rule, b.log); t != nil {
			transformers = append(transformers, t)
		}
	}

	out := make([]classify.Item, len(items))
	for i, item := range items {
		values := render.ItemValues(item)
		for name, value := range b.customValues(item, cfg.CustomPlaceholders) {
			values[name] = value
		}

		block := render.Fill(itemTemplate(item, mode, cfg), values, cfg.TrimValues)
		for _, t := range transformers {
			if rewritten, ok := t.Apply(block); ok {
				block = rewritten
			}
		}

		out[i] = classify.Item{Info: item, Rendered: block}
	}
	return out
}

func itemTemplate(item models.PullRequestInfo, mode models.Mode, cfg config.Configuration) string {
	switch mode {
	case models.ModeCommit:
		return cfg.CommitTemplate
	case models.ModeHybrid:
		// Hybrid builds mix real pull requests with synthesized
		// commit items, which carry no number.
		if item.Number == 0 {
			return cfg.CommitTemplate
		}
		return cfg.PRTemplate
	default:
		return cfg.PRTemplate
	}
}

// assembleSections concatenates per-category sections depth-first:
// a category's own section, then its children, then the next sibling.
// Empty categories are skipped entirely at every nesting level.
func assembleSections(nodes []*classify.CategoryNode) string {
	var sb strings.Builder
	appendSections(&sb, nodes)
	return sb.String()
}

func appendSections(sb *strings.Builder, nodes []*classify.CategoryNode) {
	for _, node := range nodes {
		if len(node.Items) > 0 {
			sb.WriteString(node.Title)
			sb.WriteString("\n\n")
			sb.WriteString(strings.Join(node.Items, "\n"))
			sb.WriteString("\n\n")
		}
		appendSections(sb, node.Children)
	}
}

// FilterBaseBranches keeps only items whose base branch matches one of
// the configured branch patterns. An empty pattern list keeps everything.
func (b *Builder) FilterBaseBranches(items []models.PullRequestInfo, patterns []string) []models.PullRequestInfo {
	if len(patterns) == 0 {
		return items
	}

	compiled := make([]*transform.Transformer, 0, len(patterns))
	for _, pattern := range patterns {
		if t := transform.Compile(config.Regex{Pattern: pattern}, b.log); t != nil {
			compiled = append(compiled, t)
		}
	}
	if len(compiled) == 0 {
		return items
	}

	kept := make([]models.PullRequestInfo, 0, len(items))
	for _, item := range items {
		for _, t := range compiled {
			if t.Matches(item.BaseBranch) {
				kept = append(kept, item)
				break
			}
		}
	}
	return kept
}
