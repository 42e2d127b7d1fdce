// Package config provides the changelog build configuration: defaults,
// JSON/YAML file loading, and normalization of legacy value shapes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when a configuration file has an
// extension that is neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// SortOrder is the direction items are ordered in before rendering.
type SortOrder string

const (
	SortOrderAscending  SortOrder = "ASC"
	SortOrderDescending SortOrder = "DESC"
)

// SortProperty names the item field a sort runs on.
type SortProperty string

const (
	SortPropertyMergedAt SortProperty = "mergedAt"
	SortPropertyTitle    SortProperty = "title"
)

// Sort describes how changelog items are ordered. Configuration files may
// spell it as a plain direction string ("ASC"/"DESC") or as an object
// with order and on_property; both decode into this canonical shape.
type Sort struct {
	Order      SortOrder    `json:"order" yaml:"order"`
	OnProperty SortProperty `json:"on_property" yaml:"on_property"`
}

// UnmarshalJSON accepts the legacy plain-string form alongside the
// object form.
func (s *Sort) UnmarshalJSON(data []byte) error {
	var direction string
	if err := json.Unmarshal(data, &direction); err == nil {
		*s = sortFromString(direction)
		return nil
	}

	type plain Sort
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Sort(p)
	s.applyDefaults()
	return nil
}

// UnmarshalYAML accepts the legacy plain-string form alongside the
// object form.
func (s *Sort) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var direction string
		if err := value.Decode(&direction); err != nil {
			return err
		}
		*s = sortFromString(direction)
		return nil
	}

	type plain Sort
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Sort(p)
	s.applyDefaults()
	return nil
}

func sortFromString(direction string) Sort {
	s := Sort{OnProperty: SortPropertyMergedAt}
	if strings.EqualFold(direction, string(SortOrderDescending)) {
		s.Order = SortOrderDescending
	} else {
		s.Order = SortOrderAscending
	}
	return s
}

func (s *Sort) applyDefaults() {
	if s.Order == "" {
		s.Order = SortOrderAscending
	}
	if s.OnProperty == "" {
		s.OnProperty = SortPropertyMergedAt
	}
}

// PropertyList decodes either a single property name or a list of them.
type PropertyList []string

// UnmarshalJSON accepts a bare string or an array of strings.
func (p *PropertyList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PropertyList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*p = PropertyList(many)
	return nil
}

// UnmarshalYAML accepts a bare string or a sequence of strings.
func (p *PropertyList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*p = PropertyList{single}
		return nil
	}
	var many []string
	if err := value.Decode(&many); err != nil {
		return err
	}
	*p = PropertyList(many)
	return nil
}

// Regex configures one pattern/target transformation rule.
type Regex struct {
	Pattern    string       `json:"pattern" yaml:"pattern"`
	Target     string       `json:"target" yaml:"target"`
	OnProperty PropertyList `json:"on_property,omitempty" yaml:"on_property,omitempty"`
	Method     string       `json:"method,omitempty" yaml:"method,omitempty"`
	Flags      string       `json:"flags,omitempty" yaml:"flags,omitempty"`
	OnEmpty    string       `json:"on_empty,omitempty" yaml:"on_empty,omitempty"`
}

// RegexList decodes either a single Regex object or a list of them.
type RegexList []Regex

// UnmarshalJSON accepts a bare object or an array of objects.
func (r *RegexList) UnmarshalJSON(data []byte) error {
	var many []Regex
	if err := json.Unmarshal(data, &many); err == nil {
		*r = RegexList(many)
		return nil
	}
	var single Regex
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*r = RegexList{single}
	return nil
}

// UnmarshalYAML accepts a bare mapping or a sequence of mappings.
func (r *RegexList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var single Regex
		if err := value.Decode(&single); err != nil {
			return err
		}
		*r = RegexList{single}
		return nil
	}
	var many []Regex
	if err := value.Decode(&many); err != nil {
		return err
	}
	*r = RegexList(many)
	return nil
}

// Category is one bucket in the (possibly nested) category tree. A
// category with no labels acts as the catch-all at its level; declare it
// after its siblings. Consume removes a matched item from sibling
// consideration while still recursing into nested categories.
type Category struct {
	Title      string     `json:"title" yaml:"title"`
	Labels     []string   `json:"labels" yaml:"labels"`
	Consume    bool       `json:"consume,omitempty" yaml:"consume,omitempty"`
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// CustomPlaceholder derives a named template value from an item property
// via a regex transformation.
type CustomPlaceholder struct {
	Name        string `json:"name" yaml:"name"`
	Source      string `json:"source" yaml:"source"`
	Transformer Regex  `json:"transformer" yaml:"transformer"`
}

// TagResolverMethod selects the tag ordering strategy.
type TagResolverMethod string

const (
	TagResolverMethodSemVer  TagResolverMethod = "semver"
	TagResolverMethodLexical TagResolverMethod = "sort"
)

// TagResolver configures tag filtering, rewriting, and ordering.
type TagResolver struct {
	Method      TagResolverMethod `json:"method" yaml:"method"`
	Filter      *Regex            `json:"filter,omitempty" yaml:"filter,omitempty"`
	Transformer RegexList         `json:"transformer,omitempty" yaml:"transformer,omitempty"`
}

// Configuration is the full rule set for one changelog build. Unknown
// file keys are ignored; missing keys keep the Default values.
type Configuration struct {
	MaxTagsToFetch       int                 `json:"max_tags_to_fetch" yaml:"max_tags_to_fetch"`
	MaxPullRequests      int                 `json:"max_pull_requests" yaml:"max_pull_requests"`
	MaxBackTrackTimeDays int                 `json:"max_back_track_time_days" yaml:"max_back_track_time_days"`
	Sort                 Sort                `json:"sort" yaml:"sort"`
	Template             string              `json:"template" yaml:"template"`
	PRTemplate           string              `json:"pr_template" yaml:"pr_template"`
	CommitTemplate       string              `json:"commit_template" yaml:"commit_template"`
	EmptyTemplate        string              `json:"empty_template" yaml:"empty_template"`
	Categories           []Category          `json:"categories" yaml:"categories"`
	IgnoreLabels         []string            `json:"ignore_labels" yaml:"ignore_labels"`
	LabelExtractor       []Regex             `json:"label_extractor" yaml:"label_extractor"`
	DuplicateFilter      *Regex              `json:"duplicate_filter,omitempty" yaml:"duplicate_filter,omitempty"`
	Transformers         []Regex             `json:"transformers" yaml:"transformers"`
	TagResolver          TagResolver         `json:"tag_resolver" yaml:"tag_resolver"`
	BaseBranches         []string            `json:"base_branches" yaml:"base_branches"`
	CustomPlaceholders   []CustomPlaceholder `json:"custom_placeholders" yaml:"custom_placeholders"`
	TrimValues           bool                `json:"trim_values" yaml:"trim_values"`
}

// Default returns the configuration used when no file overrides a key.
func Default() Configuration {
	return Configuration{
		MaxTagsToFetch:       200,
		MaxPullRequests:      200,
		MaxBackTrackTimeDays: 365,
		Sort: Sort{
			Order:      SortOrderAscending,
			OnProperty: SortPropertyMergedAt,
		},
		Template:       "${{CHANGELOG}}",
		PRTemplate:     "- ${{TITLE}}\n   - PR: #${{NUMBER}}",
		CommitTemplate: "- ${{TITLE}}",
		EmptyTemplate:  "- no changes",
		Categories: []Category{
			{Title: "## 🚀 Features", Labels: []string{"feature"}},
			{Title: "## 🐛 Fixes", Labels: []string{"fix"}},
			{Title: "## 🧪 Tests", Labels: []string{"test"}},
		},
		TagResolver: TagResolver{
			Method: TagResolverMethodSemVer,
		},
	}
}

// Load reads a configuration file (JSON or YAML by extension) on top of
// the defaults. Keys absent from the file keep their default values.
func Load(path string) (Configuration, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize fills derived defaults after decoding so the pipeline only
// ever sees one canonical shape.
func (c *Configuration) Normalize() {
	c.Sort.applyDefaults()
	if c.TagResolver.Method == "" {
		c.TagResolver.Method = TagResolverMethodSemVer
	}
	if c.Template == "" {
		c.Template = "${{CHANGELOG}}"
	}
	if c.PRTemplate == "" {
		c.PRTemplate = "- ${{TITLE}}\n   - PR: #${{NUMBER}}"
	}
	if c.CommitTemplate == "" {
		c.CommitTemplate = "- ${{TITLE}}"
	}
	if c.EmptyTemplate == "" {
		c.EmptyTemplate = "- no changes"
	}
}
