package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/changelog-builder/pkg/config"
)

func TestCompileInvalidPatternReturnsNil(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: "(["}, nil)
	assert.Nil(t, transformer)
	// A nil transformer is inert, not an error source.
	assert.Nil(t, transformer.ApplyAll("anything"))
	assert.True(t, transformer.Matches("anything"))
}

func TestCompileEmptyPatternReturnsNil(t *testing.T) {
	assert.Nil(t, Compile(config.Regex{}, nil))
}

func TestExtractionMethodsAgree(t *testing.T) {
	// The same bracket-tag extraction must behave identically across
	// replace, replaceAll, and match-with-capture-target.
	for _, method := range []string{MethodReplace, MethodReplaceAll, MethodMatch} {
		t.Run(method, func(t *testing.T) {
			transformer := Compile(config.Regex{
				Pattern: `.*(\[Feature\]|\[Issue\]).*`,
				Target:  "$1",
				Method:  method,
			}, nil)
			require.NotNil(t, transformer)

			value, ok := transformer.Apply("[Feature] TEST")
			require.True(t, ok)
			assert.Equal(t, "[Feature]", value)
		})
	}
}

func TestCaseInsensitiveByDefault(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: "^feat", Method: MethodMatch}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("FEAT: shiny")
	require.True(t, ok)
	assert.Equal(t, "FEAT", value)
}

func TestExplicitFlagsOverrideDefault(t *testing.T) {
	// Flags without "i" make the pattern case-sensitive again.
	transformer := Compile(config.Regex{Pattern: "^feat", Method: MethodMatch, Flags: "g"}, nil)
	require.NotNil(t, transformer)

	_, ok := transformer.Apply("FEAT: shiny")
	assert.False(t, ok)

	value, ok := transformer.Apply("feat: shiny")
	require.True(t, ok)
	assert.Equal(t, "feat", value)
}

func TestReplaceSubstitutesFirstMatchOnly(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: "a", Target: "b", Method: MethodReplace}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("banana")
	require.True(t, ok)
	assert.Equal(t, "bbnana", value)
}

func TestReplaceAllSubstitutesEveryMatch(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: "a", Target: "b", Method: MethodReplaceAll}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("banana")
	require.True(t, ok)
	assert.Equal(t, "bbnbnb", value)
}

func TestReplaceWithoutMatchYieldsNoValue(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: "xyz", Target: "b"}, nil)
	require.NotNil(t, transformer)

	_, ok := transformer.Apply("banana")
	assert.False(t, ok)
}

func TestMatchReturnsAllMatches(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: `\[\w+\]`, Method: MethodMatch}, nil)
	require.NotNil(t, transformer)

	assert.Equal(t, []string{"[core]", "[mobile]"}, transformer.ApplyAll("[core] and [mobile] work"))
}

func TestNamedGroupTargetTranslation(t *testing.T) {
	transformer := Compile(config.Regex{
		Pattern: `type: (?P<label>\w+)`,
		Target:  "$<label>",
		Method:  MethodRegexr,
	}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("type: fix please")
	require.True(t, ok)
	assert.Equal(t, "fix", value)
}

func TestRegexrPrefixesWholeMatchWithoutCaptureRef(t *testing.T) {
	transformer := Compile(config.Regex{
		Pattern: `#\d+`,
		Target:  " (ref)",
		Method:  MethodRegexr,
	}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("closes #42 eventually")
	require.True(t, ok)
	assert.Equal(t, "#42 (ref)", value)
}

func TestRegexrReturnsAtMostOneValue(t *testing.T) {
	transformer := Compile(config.Regex{
		Pattern: `#(\d+)`,
		Target:  "$1",
		Method:  MethodRegexr,
	}, nil)
	require.NotNil(t, transformer)

	assert.Equal(t, []string{"42"}, transformer.ApplyAll("#42 and #43"))
}

func TestOnEmptySubstitutesEmptyDerivation(t *testing.T) {
	transformer := Compile(config.Regex{
		Pattern: `prefix-(\w*)`,
		Target:  "$1",
		Method:  MethodRegexr,
		OnEmpty: "none",
	}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("prefix- rest")
	require.True(t, ok)
	assert.Equal(t, "none", value)
}

func TestEmptyDerivationWithoutOnEmptyYieldsNoValue(t *testing.T) {
	transformer := Compile(config.Regex{
		Pattern: `prefix-(\w*)`,
		Target:  "$1",
		Method:  MethodRegexr,
	}, nil)
	require.NotNil(t, transformer)

	_, ok := transformer.Apply("prefix- rest")
	assert.False(t, ok)
}

func TestDoubleBackslashUnescape(t *testing.T) {
	// JSON-embedded patterns arrive with doubled backslashes.
	transformer := Compile(config.Regex{Pattern: `\\d+`, Method: MethodMatch}, nil)
	require.NotNil(t, transformer)

	value, ok := transformer.Apply("build 123")
	require.True(t, ok)
	assert.Equal(t, "123", value)
}

func TestMatchesReportsPatternSatisfaction(t *testing.T) {
	transformer := Compile(config.Regex{Pattern: `^v\d+`}, nil)
	require.NotNil(t, transformer)

	assert.True(t, transformer.Matches("v10.1.0"))
	assert.False(t, transformer.Matches("nightly"))
}
