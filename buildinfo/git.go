package buildinfo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// CommitDateLayout matches `git log --format=%ci`.
const CommitDateLayout = "2006-01-02 15:04:05 -0700"

// errNoTag is returned by Tag if no tag is reachable from HEAD.
var errNoTag = errors.New("no tag reachable from HEAD")

// GitRepo reads build metadata from a git repository through go-git.
type GitRepo struct {
	repo *git.Repository
}

// OpenGitRepo opens the repository containing `dir`, searching parent directories.
func OpenGitRepo(dir string) (*GitRepo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at '%s': %w", dir, err)
	}
	return &GitRepo{repo}, nil
}

func (r *GitRepo) head() (*plumbing.Reference, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get repo HEAD: %w", err)
	}
	return head, nil
}

// Hash returns the full hash of HEAD.
func (r *GitRepo) Hash(ctx context.Context) (string, error) {
	head, err := r.head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

// Branch returns the checked-out branch, or "HEAD" if HEAD is detached.
func (r *GitRepo) Branch(ctx context.Context) (string, error) {
	head, err := r.head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

// tagsByCommit maps commit hashes to the names of the tags pointing at them.
// Annotated tags are peeled to their target commit.
func (r *GitRepo) tagsByCommit() (map[plumbing.Hash][]string, error) {
	refs, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	tags := map[plumbing.Hash][]string{}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tag, err := r.repo.TagObject(ref.Hash()); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return nil
			}
			target = commit.Hash
		}
		tags[target] = append(tags[target], ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// greatestTag returns the greatest of `names`. Semantic versions compare by precedence
// and win over other names, which compare lexically.
func greatestTag(names []string) string {
	sort.Slice(names, func(i, j int) bool {
		vi, errI := semver.NewVersion(names[i])
		vj, errJ := semver.NewVersion(names[j])
		switch {
		case errI == nil && errJ == nil && !vi.Equal(vj):
			return vi.LessThan(vj)
		case errI == nil && errJ != nil:
			return false
		case errI != nil && errJ == nil:
			return true
		}
		return names[i] < names[j]
	})
	return names[len(names)-1]
}

// Tag returns the nearest tag reachable from HEAD, like `git describe --tags --abbrev=0`.
// If several tags point at the same commit, the greatest wins.
func (r *GitRepo) Tag(ctx context.Context) (string, error) {
	head, err := r.head()
	if err != nil {
		return "", err
	}
	tags, err := r.tagsByCommit()
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", errNoTag
	}

	commits, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderBSF})
	if err != nil {
		return "", fmt.Errorf("failed to walk history: %w", err)
	}
	defer commits.Close()

	found := ""
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if names, ok := tags[c.Hash]; ok {
			found = greatestTag(names)
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errNoTag
	}
	return found, nil
}

// Dirty reports whether tracked files have uncommitted changes. Untracked files are ignored.
func (r *GitRepo) Dirty(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get repo worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get repo status: %w", err)
	}
	for _, file := range status {
		if file.Worktree == git.Untracked && file.Staging == git.Untracked {
			continue
		}
		if file.Worktree != git.Unmodified || file.Staging != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// CommitDate returns the committer date of HEAD.
func (r *GitRepo) CommitDate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, err := r.head()
	if err != nil {
		return "", err
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("failed to read commit '%s': %w", head.Hash(), err)
	}
	return commit.Committer.When.Format(CommitDateLayout), nil
}
