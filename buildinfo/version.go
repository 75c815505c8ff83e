package buildinfo

import (
	"strings"
	"time"
)

var defaultBranches = map[string]bool{
	"main":   true,
	"master": true,
}

// DeriveVersion builds the human-readable version string of a build.
//
// The latest tag comes first, followed by the short hash (with a "-dirty" suffix for
// uncommitted changes) and the branch in parentheses unless it is a default branch.
// Unknown parts are left out. If nothing is known, the version is "dev-YYYYMMDD".
func DeriveVersion(tag, shortHash string, dirty bool, branch string, buildTime time.Time) string {
	parts := []string{}
	if known(tag) {
		parts = append(parts, tag)
	}
	if known(shortHash) {
		hashPart := shortHash
		if dirty {
			hashPart += "-dirty"
		}
		parts = append(parts, hashPart)
	}
	if known(branch) && !defaultBranches[branch] {
		parts = append(parts, "("+branch+")")
	}

	if len(parts) == 0 {
		return "dev-" + buildTime.Format("20060102")
	}
	return strings.Join(parts, "-")
}

func known(s string) bool {
	return s != "" && s != Unknown
}

// ShortHash abbreviates a commit hash to eight characters.
func ShortHash(hash string) string {
	if !known(hash) {
		return Unknown
	}
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
