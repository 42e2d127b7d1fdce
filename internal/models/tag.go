// Package models defines the record types exchanged between the
// repository backends and the changelog pipeline.
package models

import "time"

// TagInfo describes a single repository tag as used for range resolution.
type TagInfo struct {
	Name       string     `json:"name"`
	Commit     string     `json:"commit,omitempty"`
	PreRelease bool       `json:"pre_release,omitempty"`
	Date       *time.Time `json:"date,omitempty"`

	// OriginalName holds the untransformed tag name while a resolver
	// transformer chain is in effect. Empty when no transform applied.
	OriginalName string `json:"-"`
}

// DisplayName returns the name to emit to users: the original tag name
// when a transformer rewrote Name for sorting, otherwise Name itself.
func (t TagInfo) DisplayName() string {
	if t.OriginalName != "" {
		return t.OriginalName
	}
	return t.Name
}
