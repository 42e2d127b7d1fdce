// Package tags resolves the tag range a changelog build runs over:
// filtering, rewriting, and ordering tag names, then locating the
// predecessor of the release tag.
package tags

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/internal/transform"
	"github.com/releasekit/changelog-builder/pkg/config"
)

// ErrNoTags is returned when the repository exposes no tags at all, so
// no range can possibly be resolved.
var ErrNoTags = errors.New("no tags found")

// Range is the resolved (from, to) tag pair delimiting a build. Either
// side may be nil when resolution failed; the caller decides whether
// that is fatal.
type Range struct {
	From *models.TagInfo
	To   *models.TagInfo
}

// PrepareAndSortTags filters, transforms, and orders the tag list
// newest-first according to the resolver configuration. The returned
// slice is a new view; entries carry their original names even when a
// transformer chain rewrote them for ordering.
func PrepareAndSortTags(tagList []models.TagInfo, resolver config.TagResolver, log *slog.Logger) []models.TagInfo {
	filtered := filterTags(tagList, resolver.Filter, log)
	transformed := transformTags(filtered, resolver.Transformer, log)

	var sorted []models.TagInfo
	switch resolver.Method {
	case config.TagResolverMethodSemVer, "":
		sorted = sortBySemVer(transformed)
	default:
		// Lexical ordering doubles as the fallback for unknown methods.
		sorted = sortLexically(transformed)
	}

	return restoreOriginalNames(sorted)
}

// filterTags drops tags whose name does not satisfy the filter regex.
func filterTags(tagList []models.TagInfo, filter *config.Regex, log *slog.Logger) []models.TagInfo {
	if filter == nil {
		return tagList
	}
	t := transform.Compile(*filter, log)
	if t == nil {
		return tagList
	}

	kept := make([]models.TagInfo, 0, len(tagList))
	for _, tag := range tagList {
		if t.Matches(tag.Name) {
			kept = append(kept, tag)
		}
	}
	return kept
}

// transformTags rewrites each tag name through the transformer chain,
// remembering the original name for restoration after sorting.
func transformTags(tagList []models.TagInfo, transformers config.RegexList, log *slog.Logger) []models.TagInfo {
	if len(transformers) == 0 {
		return tagList
	}

	compiled := make([]*transform.Transformer, 0, len(transformers))
	for _, rule := range transformers {
		if t := transform.Compile(rule, log); t != nil {
			compiled = append(compiled, t)
		}
	}
	if len(compiled) == 0 {
		return tagList
	}

	out := make([]models.TagInfo, len(tagList))
	for i, tag := range tagList {
		name := tag.Name
		for _, t := range compiled {
			if rewritten, ok := t.Apply(name); ok {
				name = rewritten
			}
		}
		if name != tag.Name {
			tag.OriginalName = tag.Name
			tag.Name = name
		}
		out[i] = tag
	}
	return out
}

// sortBySemVer drops tags that are not loosely-valid semantic versions,
// marks pre-releases, and orders the rest descending by semver
// precedence. Ties keep input order.
func sortBySemVer(tagList []models.TagInfo) []models.TagInfo {
	type parsed struct {
		tag     models.TagInfo
		version *semver.Version
	}

	entries := make([]parsed, 0, len(tagList))
	for _, tag := range tagList {
		v, err := semver.NewVersion(tag.Name)
		if err != nil {
			continue
		}
		tag.PreRelease = v.Prerelease() != ""
		entries = append(entries, parsed{tag: tag, version: v})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].version.GreaterThan(entries[j].version)
	})

	out := make([]models.TagInfo, len(entries))
	for i, e := range entries {
		out[i] = e.tag
	}
	return out
}

// sortLexically orders tags descending by the ordering the "sort"
// method defines: strip a leading v, split on the first hyphen, compare
// version parts with numeric-aware collation (1000.0.0 ranks above
// 100.0.0 and 20.0.2), and rank a suffix-free name ahead of a suffixed
// one at equal version parts.
func sortLexically(tagList []models.TagInfo) []models.TagInfo {
	out := make([]models.TagInfo, len(tagList))
	copy(out, tagList)

	for i := range out {
		out[i].PreRelease = strings.Contains(out[i].Name, "-")
	}

	collator := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(out, func(i, j int) bool {
		return compareLexical(collator, out[i].Name, out[j].Name) > 0
	})
	return out
}

// compareLexical returns a positive value when a sorts ahead of
// (is newer than) b. Version parts compare through the numeric-aware
// collator so digit runs compare by value, not byte order.
func compareLexical(collator *collate.Collator, a, b string) int {
	versionA, suffixA, hasSuffixA := splitLexical(a)
	versionB, suffixB, hasSuffixB := splitLexical(b)

	if c := collator.CompareString(versionA, versionB); c != 0 {
		return c
	}
	switch {
	case !hasSuffixA && !hasSuffixB:
		return 0
	case !hasSuffixA:
		return 1
	case !hasSuffixB:
		return -1
	default:
		return strings.Compare(suffixA, suffixB)
	}
}

func splitLexical(name string) (version, suffix string, hasSuffix bool) {
	name = strings.TrimPrefix(name, "v")
	version, suffix, hasSuffix = strings.Cut(name, "-")
	return version, suffix, hasSuffix
}

// restoreOriginalNames swaps transformed names back to the originals
// while keeping the derived ordering.
func restoreOriginalNames(tagList []models.TagInfo) []models.TagInfo {
	for i := range tagList {
		if tagList[i].OriginalName != "" {
			tagList[i].Name = tagList[i].OriginalName
			tagList[i].OriginalName = ""
		}
	}
	return tagList
}

// PredecessorTag returns the tag preceding toTagName in the
// newest-first sorted list. Pre-releases are skipped when requested.
// When toTagName does not appear in the list at all, the newest tag is
// returned; this deliberate fallback means "nothing resolved, use
// latest" rather than an error.
func PredecessorTag(sorted []models.TagInfo, toTagName string, ignorePreReleases bool) *models.TagInfo {
	if len(sorted) == 0 {
		return nil
	}

	idx := indexOfTag(sorted, toTagName)
	if idx < 0 {
		return &sorted[0]
	}

	for j := idx + 1; j < len(sorted); j++ {
		if ignorePreReleases && sorted[j].PreRelease {
			continue
		}
		return &sorted[j]
	}
	return nil
}

func indexOfTag(sorted []models.TagInfo, name string) int {
	for i := range sorted {
		if strings.EqualFold(sorted[i].Name, name) {
			return i
		}
	}
	return -1
}

// ResolveRange runs the full resolution: filter, transform, sort, then
// locate the to tag (explicit name or newest) and the from tag (explicit
// name or predecessor). Nil sides are valid resolution failures, not
// errors.
func ResolveRange(tagList []models.TagInfo, resolver config.TagResolver, fromName, toName string, ignorePreReleases bool, log *slog.Logger) Range {
	sorted := PrepareAndSortTags(tagList, resolver, log)

	var to *models.TagInfo
	switch {
	case toName != "":
		if idx := indexOfTag(sorted, toName); idx >= 0 {
			to = &sorted[idx]
		} else {
			// Explicitly requested tags are honored even when the
			// listing does not include them.
			to = &models.TagInfo{Name: toName}
		}
	case len(sorted) > 0:
		to = &sorted[0]
	}

	var from *models.TagInfo
	switch {
	case fromName != "":
		if idx := indexOfTag(sorted, fromName); idx >= 0 {
			from = &sorted[idx]
		} else {
			from = &models.TagInfo{Name: fromName}
		}
	case to != nil:
		from = PredecessorTag(sorted, to.Name, ignorePreReleases)
	}

	if log != nil && (from == nil || to == nil) {
		log.Warn("tag range incomplete",
			"from_resolved", from != nil, "to_resolved", to != nil)
	}
	return Range{From: from, To: to}
}
