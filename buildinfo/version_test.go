package buildinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var buildTime = time.Date(2026, time.March, 7, 13, 4, 5, 0, time.UTC)

func TestDeriveVersion(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		shortHash string
		dirty     bool
		branch    string
		expected  string
	}{
		{"tag, dirty hash, default branch", "v1.2", "abcdef12", true, "main", "v1.2-abcdef12-dirty"},
		{"no tag, feature branch", Unknown, "abcdef12", false, "feature/x", "abcdef12-(feature/x)"},
		{"everything unknown", Unknown, Unknown, false, Unknown, "dev-20260307"},
		{"master is a default branch", Unknown, "abcdef12", false, "master", "abcdef12"},
		{"tag on a feature branch", "v2.0.1", "0123abcd", false, "dev", "v2.0.1-0123abcd-(dev)"},
		{"dirty without a hash", Unknown, Unknown, true, "main", "dev-20260307"},
		{"only a branch", "", "", false, "fix", "(fix)"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, DeriveVersion(test.tag, test.shortHash, test.dirty, test.branch, buildTime))
		})
	}
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abcdef12", ShortHash("abcdef1234567890abcdef1234567890abcdef12"))
	assert.Equal(t, "abc", ShortHash("abc"))
	assert.Equal(t, Unknown, ShortHash(Unknown))
	assert.Equal(t, Unknown, ShortHash(""))
}
