package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseShortStat(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		files     int
		additions int
		deletions int
	}{
		{
			name:      "full line",
			out:       " 12 files changed, 340 insertions(+), 101 deletions(-)\n",
			files:     12,
			additions: 340,
			deletions: 101,
		},
		{
			name:      "insertions only",
			out:       " 1 file changed, 2 insertions(+)\n",
			files:     1,
			additions: 2,
		},
		{
			name:      "deletions only",
			out:       " 3 files changed, 7 deletions(-)\n",
			files:     3,
			deletions: 7,
		},
		{
			name: "empty diff",
			out:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, additions, deletions := parseShortStat(tt.out)
			assert.Equal(t, tt.files, files)
			assert.Equal(t, tt.additions, additions)
			assert.Equal(t, tt.deletions, deletions)
		})
	}
}

func TestNewLocalGitRepositoryDefaultsToCwd(t *testing.T) {
	assert.Equal(t, ".", NewLocalGitRepository("").Path)
	assert.Equal(t, "/srv/repo", NewLocalGitRepository("/srv/repo").Path)
}
