package buildinfo

import (
	"context"
	"fmt"
)

// Unknown is recorded for every piece of source-control metadata that could not be queried.
const Unknown = "unknown"

// VCS answers the source-control questions needed for a build-info record.
type VCS interface {
	Hash(ctx context.Context) (string, error)
	Branch(ctx context.Context) (string, error)
	Tag(ctx context.Context) (string, error)
	Dirty(ctx context.Context) (bool, error)
	CommitDate(ctx context.Context) (string, error)
}

// Unavailable is a VCS for source trees whose metadata cannot be read at all.
type Unavailable struct {
	Err error
}

func (u Unavailable) err() error {
	if u.Err == nil {
		return fmt.Errorf("no source control available")
	}
	return u.Err
}

func (u Unavailable) Hash(ctx context.Context) (string, error)       { return "", u.err() }
func (u Unavailable) Branch(ctx context.Context) (string, error)     { return "", u.err() }
func (u Unavailable) Tag(ctx context.Context) (string, error)        { return "", u.err() }
func (u Unavailable) Dirty(ctx context.Context) (bool, error)        { return false, u.err() }
func (u Unavailable) CommitDate(ctx context.Context) (string, error) { return "", u.err() }
