// Package transform implements the regex transformation engine backing
// label extraction, custom placeholders, tag rewriting, and the
// duplicate filter.
package transform

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/releasekit/changelog-builder/pkg/config"
)

// Method names the substitution semantics a transformer runs with.
const (
	MethodReplace    = "replace"
	MethodReplaceAll = "replaceAll"
	MethodMatch      = "match"
	MethodRegexr     = "regexr"
)

// Transformer is the compiled form of a config.Regex rule. A nil
// Transformer is inert: every evaluation on it yields no value.
type Transformer struct {
	Pattern    *regexp.Regexp
	Target     string
	OnProperty []string
	Method     string
	OnEmpty    string
}

// captureRefPattern recognizes capture references inside a target string:
// $1..$n, $<name>, ${name}, and the whole-match reference $&.
var captureRefPattern = regexp.MustCompile(`\$(\d+|&|<\w+>|\{\w+\})`)

// namedGroupRefPattern matches JS-style $<name> references.
var namedGroupRefPattern = regexp.MustCompile(`\$<(\w+)>`)

// Compile builds a Transformer from a regex rule. Invalid patterns never
// propagate an error: the failure is logged as a warning and a nil
// (inert) transformer is returned, degrading the rule to a no-op.
func Compile(rule config.Regex, log *slog.Logger) *Transformer {
	if rule.Pattern == "" {
		return nil
	}

	pattern := strings.ReplaceAll(rule.Pattern, `\\`, `\`)
	pattern = flagPrefix(rule.Flags) + pattern

	re, err := regexp.Compile(pattern)
	if err != nil {
		if log != nil {
			log.Warn("invalid transformer pattern, rule disabled",
				"pattern", rule.Pattern, "error", err)
		}
		return nil
	}

	method := rule.Method
	if method == "" {
		method = MethodReplace
	}

	return &Transformer{
		Pattern:    re,
		Target:     translateTarget(rule.Target),
		OnProperty: []string(rule.OnProperty),
		Method:     method,
		OnEmpty:    rule.OnEmpty,
	}
}

// flagPrefix maps configured flag characters onto Go inline flags.
// Patterns are case-insensitive unless an explicit flags value overrides
// that; the global and unicode flags are implicit in Go's engine.
func flagPrefix(flags string) string {
	if flags == "" {
		return "(?i)"
	}
	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			prefix.WriteString("(?i)")
		case 'm':
			prefix.WriteString("(?m)")
		case 's':
			prefix.WriteString("(?s)")
		}
	}
	return prefix.String()
}

// translateTarget rewrites JS-flavored capture references into the forms
// understood by regexp.Expand: $<name> into ${name} and $& into ${0}.
func translateTarget(target string) string {
	target = namedGroupRefPattern.ReplaceAllString(target, `$${$1}`)
	return strings.ReplaceAll(target, "$&", "${0}")
}

// hasCaptureRef reports whether the target references any capture group.
func hasCaptureRef(target string) bool {
	return captureRefPattern.MatchString(target)
}

// Matches reports whether the value satisfies the transformer's pattern.
// A nil transformer matches everything.
func (t *Transformer) Matches(value string) bool {
	if t == nil || t.Pattern == nil {
		return true
	}
	return t.Pattern.MatchString(value)
}

// Apply evaluates the transformer against the value and returns the
// derived string. The boolean is false when the rule produced no value,
// which callers treat as "do not apply".
func (t *Transformer) Apply(value string) (string, bool) {
	results := t.ApplyAll(value)
	if len(results) == 0 {
		return "", false
	}
	return results[0], true
}

// ApplyAll evaluates the transformer and returns every derived value.
// A nil slice means the rule produced nothing.
func (t *Transformer) ApplyAll(value string) []string {
	if t == nil || t.Pattern == nil {
		return nil
	}

	var results []string
	switch t.Method {
	case MethodMatch:
		results = t.applyMatch(value)
	case MethodReplaceAll:
		if t.Pattern.MatchString(value) {
			results = []string{t.Pattern.ReplaceAllString(value, t.Target)}
		}
	case MethodRegexr:
		if out, ok := t.applyRegexr(value); ok {
			results = []string{out}
		}
	default:
		if out, ok := t.applyReplaceFirst(value); ok {
			results = []string{out}
		}
	}

	return t.applyEmptyPolicy(results)
}

// applyMatch returns the raw regex matches. When a target with capture
// references is configured, each matched slice is run through a
// second-stage regexr substitution so the configured group text is
// extracted instead of the full match.
func (t *Transformer) applyMatch(value string) []string {
	matches := t.Pattern.FindAllString(value, -1)
	if matches == nil {
		return nil
	}
	if t.Target == "" || !hasCaptureRef(t.Target) {
		return matches
	}

	extracted := make([]string, 0, len(matches))
	for _, m := range matches {
		if out, ok := t.applyRegexr(m); ok {
			extracted = append(extracted, out)
		}
	}
	if len(extracted) == 0 {
		return nil
	}
	return extracted
}

// applyReplaceFirst substitutes the target at the first match only.
func (t *Transformer) applyReplaceFirst(value string) (string, bool) {
	idx := t.Pattern.FindStringSubmatchIndex(value)
	if idx == nil {
		return "", false
	}
	expanded := t.Pattern.ExpandString(nil, t.Target, value, idx)
	return value[:idx[0]] + string(expanded) + value[idx[1]:], true
}

// applyRegexr extracts a single value from the first match: the target
// is expanded against the match's capture groups, prefixed with the
// whole-match reference when the target itself carries no capture
// reference. At most one value is derived per evaluation.
func (t *Transformer) applyRegexr(value string) (string, bool) {
	idx := t.Pattern.FindStringSubmatchIndex(value)
	if idx == nil {
		return "", false
	}
	target := t.Target
	if !hasCaptureRef(target) {
		target = "${0}" + target
	}
	expanded := t.Pattern.ExpandString(nil, target, value, idx)
	return string(expanded), true
}

// applyEmptyPolicy substitutes OnEmpty for empty derivations, or drops
// them entirely when no OnEmpty is configured.
func (t *Transformer) applyEmptyPolicy(results []string) []string {
	if results == nil {
		return nil
	}
	kept := results[:0]
	for _, r := range results {
		if r == "" {
			if t.OnEmpty == "" {
				continue
			}
			r = t.OnEmpty
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
