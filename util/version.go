package util

import (
	"fmt"
)

// Version is a semantic version.
type Version struct {
	Major uint
	Minor uint
	Patch uint
}

// VbtVersion is the version of this tool.
var VbtVersion = Version{1, 2, 0}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}
