package models

import "github.com/releasekit/changelog-builder/pkg/config"

// Mode selects where changelog entries are sourced from.
type Mode string

const (
	ModePR     Mode = "PR"
	ModeCommit Mode = "COMMIT"
	ModeHybrid Mode = "HYBRID"
)

// ReleaseNotesOptions carries everything one build invocation needs
// besides the item list and diff summary.
type ReleaseNotesOptions struct {
	Owner         string
	Repo          string
	FromTag       *TagInfo
	ToTag         *TagInfo
	IncludeOpen   bool
	Mode          Mode
	Configuration config.Configuration
}
