package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/pkg/config"
)

func tagList(names ...string) []models.TagInfo {
	out := make([]models.TagInfo, len(names))
	for i, name := range names {
		out[i] = models.TagInfo{Name: name}
	}
	return out
}

func tagNames(tagInfos []models.TagInfo) []string {
	out := make([]string, len(tagInfos))
	for i, tag := range tagInfos {
		out[i] = tag.Name
	}
	return out
}

func TestSortBySemVer(t *testing.T) {
	sorted := PrepareAndSortTags(tagList(
		"2020.4.0", "2020.4.0-rc02", "2020.3.2", "v2020.3.1",
		"2020.3.1-rc03", "2020.3.1-rc01", "2020.3.1-b01", "v2020.3.0",
	), config.TagResolver{Method: config.TagResolverMethodSemVer}, nil)

	assert.Equal(t, []string{
		"2020.4.0", "2020.4.0-rc02", "2020.3.2", "v2020.3.1",
		"2020.3.1-rc03", "2020.3.1-rc01", "2020.3.1-b01", "v2020.3.0",
	}, tagNames(sorted))
}

func TestSemVerDropsInvalidTags(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0", "nightly", "2.0.0"),
		config.TagResolver{Method: config.TagResolverMethodSemVer}, nil)
	assert.Equal(t, []string{"2.0.0", "1.0.0"}, tagNames(sorted))
}

func TestSemVerMarksPreReleases(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0", "1.0.0-rc1"),
		config.TagResolver{Method: config.TagResolverMethodSemVer}, nil)

	require.Len(t, sorted, 2)
	assert.Equal(t, "1.0.0", sorted[0].Name)
	assert.False(t, sorted[0].PreRelease)
	assert.Equal(t, "1.0.0-rc1", sorted[1].Name)
	assert.True(t, sorted[1].PreRelease)
}

func TestUnknownMethodFallsBackToLexicalSort(t *testing.T) {
	sorted := PrepareAndSortTags(tagList(
		"0.0.1", "0.0.1-rc01", "0.1.0", "0.1.0-b01", "1.0.0", "1.0.0-a01",
		"2.0.0", "10.0.0", "10.1.0", "10.1.0-2", "20.0.2", "100.0.0", "1000.0.0",
	), config.TagResolver{Method: "non-existing-method"}, nil)

	assert.Equal(t, []string{
		"1000.0.0", "100.0.0", "20.0.2", "10.1.0", "10.1.0-2", "10.0.0",
		"2.0.0", "1.0.0", "1.0.0-a01", "0.1.0", "0.1.0-b01", "0.0.1", "0.0.1-rc01",
	}, tagNames(sorted))
}

func TestLexicalSuffixesCompareDescending(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0-a01", "1.0.0-b02", "1.0.0"),
		config.TagResolver{Method: config.TagResolverMethodLexical}, nil)

	// At equal version parts the suffix-free tag ranks first, then
	// suffixed tags descending by suffix.
	assert.Equal(t, []string{"1.0.0", "1.0.0-b02", "1.0.0-a01"}, tagNames(sorted))
}

func TestLexicalMarksPreReleasesByHyphen(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0", "1.0.0-rc1"),
		config.TagResolver{Method: config.TagResolverMethodLexical}, nil)

	require.Len(t, sorted, 2)
	assert.False(t, sorted[0].PreRelease)
	assert.True(t, sorted[1].PreRelease)
}

func TestFilterDropsNonMatchingTags(t *testing.T) {
	resolver := config.TagResolver{
		Method: config.TagResolverMethodSemVer,
		Filter: &config.Regex{Pattern: `^v?\d+\.\d+\.\d+$`},
	}
	sorted := PrepareAndSortTags(tagList("1.0.0", "api-1.0.0", "2.0.0"), resolver, nil)
	assert.Equal(t, []string{"2.0.0", "1.0.0"}, tagNames(sorted))
}

func TestTransformerRoundTripRestoresOriginalNames(t *testing.T) {
	resolver := config.TagResolver{
		Method:      config.TagResolverMethodSemVer,
		Transformer: config.RegexList{{Pattern: `api-(v\d+\.\d+\.\d+)`, Target: "$1"}},
	}
	sorted := PrepareAndSortTags(tagList("api-v1.0.0", "api-v2.0.0", "api-v1.1.0"), resolver, nil)

	// Ordering comes from the transformed names; output carries the
	// original names.
	assert.Equal(t, []string{"api-v2.0.0", "api-v1.1.0", "api-v1.0.0"}, tagNames(sorted))
}

func TestPredecessorTag(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0", "1.1.0", "1.2.0"),
		config.TagResolver{}, nil)

	pred := PredecessorTag(sorted, "1.2.0", false)
	require.NotNil(t, pred)
	assert.Equal(t, "1.1.0", pred.Name)
}

func TestPredecessorTagIsCaseInsensitive(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("v1.0.0", "v1.1.0"), config.TagResolver{}, nil)

	pred := PredecessorTag(sorted, "V1.1.0", false)
	require.NotNil(t, pred)
	assert.Equal(t, "v1.0.0", pred.Name)
}

func TestPredecessorTagSkipsPreReleases(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("2.0.0", "2.0.0-rc1", "1.0.0"),
		config.TagResolver{}, nil)

	pred := PredecessorTag(sorted, "2.0.0", true)
	require.NotNil(t, pred)
	assert.Equal(t, "1.0.0", pred.Name)
}

func TestPredecessorTagFallsBackToNewestWhenUnknown(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0", "2.0.0"), config.TagResolver{}, nil)

	// Deliberate permissiveness: an unknown target resolves to the
	// newest tag instead of failing.
	pred := PredecessorTag(sorted, "9.9.9", false)
	require.NotNil(t, pred)
	assert.Equal(t, "2.0.0", pred.Name)
}

func TestPredecessorTagNilWhenExhausted(t *testing.T) {
	sorted := PrepareAndSortTags(tagList("1.0.0"), config.TagResolver{}, nil)
	assert.Nil(t, PredecessorTag(sorted, "1.0.0", false))
	assert.Nil(t, PredecessorTag(nil, "1.0.0", false))
}

func TestResolveRangeDefaults(t *testing.T) {
	r := ResolveRange(tagList("1.0.0", "1.1.0", "1.2.0"), config.TagResolver{}, "", "", false, nil)

	require.NotNil(t, r.To)
	require.NotNil(t, r.From)
	assert.Equal(t, "1.2.0", r.To.Name)
	assert.Equal(t, "1.1.0", r.From.Name)
}

func TestResolveRangeExplicitTags(t *testing.T) {
	r := ResolveRange(tagList("1.0.0", "1.1.0", "1.2.0"), config.TagResolver{}, "1.0.0", "1.1.0", false, nil)

	require.NotNil(t, r.To)
	require.NotNil(t, r.From)
	assert.Equal(t, "1.1.0", r.To.Name)
	assert.Equal(t, "1.0.0", r.From.Name)
}

func TestResolveRangeHonorsUnlistedExplicitTag(t *testing.T) {
	r := ResolveRange(tagList("1.0.0"), config.TagResolver{}, "", "9.9.9", false, nil)

	require.NotNil(t, r.To)
	assert.Equal(t, "9.9.9", r.To.Name)
	require.NotNil(t, r.From)
	assert.Equal(t, "1.0.0", r.From.Name)
}

func TestResolveRangeEmptyTagList(t *testing.T) {
	r := ResolveRange(nil, config.TagResolver{}, "", "", false, nil)
	assert.Nil(t, r.From)
	assert.Nil(t, r.To)
}
