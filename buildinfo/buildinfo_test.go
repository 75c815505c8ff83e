package buildinfo

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVCS struct {
	hash, branch, tag, commitDate string
	dirty                         bool
	err                           error
	delay                         time.Duration
}

func (f fakeVCS) wait(ctx context.Context) error {
	if f.delay == 0 {
		return f.err
	}
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f fakeVCS) Hash(ctx context.Context) (string, error)   { return f.hash, f.wait(ctx) }
func (f fakeVCS) Branch(ctx context.Context) (string, error) { return f.branch, f.wait(ctx) }
func (f fakeVCS) Tag(ctx context.Context) (string, error)    { return f.tag, f.wait(ctx) }
func (f fakeVCS) Dirty(ctx context.Context) (bool, error)    { return f.dirty, f.wait(ctx) }
func (f fakeVCS) CommitDate(ctx context.Context) (string, error) {
	return f.commitDate, f.wait(ctx)
}

func fixedNow() time.Time {
	return buildTime
}

func TestGenerate(t *testing.T) {
	g := Generator{
		VCS: fakeVCS{
			hash:       "abcdef1234567890abcdef1234567890abcdef12",
			branch:     "main",
			tag:        "v1.2",
			dirty:      true,
			commitDate: "2026-03-06 10:00:00 +0100",
		},
		Now:          fixedNow,
		AppName:      "arty_s7_riscv_app",
		PlatformName: "arty_s7_riscv_platform",
	}

	record := g.Generate(context.Background())

	expected := Record{
		Version:            "v1.2-abcdef12-dirty",
		BuildDate:          "2026-03-07",
		BuildTime:          "13:04:05",
		BuildTimestamp:     "2026-03-07 13:04:05 UTC",
		BuildUnixTimestamp: buildTime.Unix(),
		GitHash:            "abcdef1234567890abcdef1234567890abcdef12",
		GitShortHash:       "abcdef12",
		GitBranch:          "main",
		GitTag:             "v1.2",
		GitDirty:           true,
		GitCommitDate:      "2026-03-06 10:00:00 +0100",
		AppName:            "arty_s7_riscv_app",
		PlatformName:       "arty_s7_riscv_platform",
	}
	ignored := cmpopts.IgnoreFields(Record{}, "BuildID", "BuildSystem", "BuildMachine", "BuildUser", "ToolVersion")
	if diff := cmp.Diff(expected, record, ignored); diff != "" {
		t.Errorf("unexpected record (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, record.BuildID)
}

func TestGenerateDegradesToUnknown(t *testing.T) {
	g := Generator{VCS: fakeVCS{err: errors.New("git: command not found")}, Now: fixedNow}

	record := g.Generate(context.Background())

	assert.Equal(t, "dev-20260307", record.Version)
	assert.Equal(t, Unknown, record.GitHash)
	assert.Equal(t, Unknown, record.GitShortHash)
	assert.Equal(t, Unknown, record.GitBranch)
	assert.Equal(t, Unknown, record.GitTag)
	assert.Equal(t, Unknown, record.GitCommitDate)
	assert.False(t, record.GitDirty)
}

func TestGenerateWithoutVCS(t *testing.T) {
	g := Generator{Now: fixedNow}
	assert.Equal(t, "dev-20260307", g.Generate(context.Background()).Version)
}

func TestGenerateTimesOutSlowQueries(t *testing.T) {
	g := Generator{
		VCS:     fakeVCS{hash: "abcdef1234567890", branch: "main", delay: time.Minute},
		Timeout: 10 * time.Millisecond,
		Now:     fixedNow,
	}

	start := time.Now()
	record := g.Generate(context.Background())

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "dev-20260307", record.Version)
}

// stubbornVCS ignores cancellation and records how many calls overlap.
type stubbornVCS struct {
	delay         time.Duration
	active, peak  atomic.Int32
	panicOnBranch bool
}

func (s *stubbornVCS) call() {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
}

func (s *stubbornVCS) Hash(ctx context.Context) (string, error) {
	s.call()
	return "abcdef1234567890", nil
}

func (s *stubbornVCS) Branch(ctx context.Context) (string, error) {
	s.call()
	if s.panicOnBranch {
		panic("corrupt packfile")
	}
	return "main", nil
}

func (s *stubbornVCS) Tag(ctx context.Context) (string, error) {
	s.call()
	return "v1.0.0", nil
}

func (s *stubbornVCS) Dirty(ctx context.Context) (bool, error) {
	s.call()
	return true, nil
}

func (s *stubbornVCS) CommitDate(ctx context.Context) (string, error) {
	s.call()
	return "2026-03-06 10:00:00 +0100", nil
}

func TestGenerateNeverOverlapsQueries(t *testing.T) {
	vcs := &stubbornVCS{delay: 50 * time.Millisecond}
	g := Generator{VCS: vcs, Timeout: 10 * time.Millisecond, Now: fixedNow}

	record := g.Generate(context.Background())

	assert.Equal(t, int32(1), vcs.peak.Load())
	assert.Equal(t, int32(0), vcs.active.Load())
	assert.Equal(t, "dev-20260307", record.Version)
	assert.Equal(t, Unknown, record.GitHash)
	assert.False(t, record.GitDirty)
}

func TestGenerateRecoversFromPanics(t *testing.T) {
	vcs := &stubbornVCS{panicOnBranch: true}
	g := Generator{VCS: vcs, Now: fixedNow}

	var record Record
	require.NotPanics(t, func() { record = g.Generate(context.Background()) })

	assert.Equal(t, Unknown, record.GitBranch)
	assert.Equal(t, "v1.0.0", record.GitTag)
	assert.Equal(t, "v1.0.0-abcdef12-dirty", record.Version)
}

func TestDefinitions(t *testing.T) {
	record := Record{Version: "v1.2-abcdef12-dirty", BuildTimestamp: "2026-03-07 13:04:05 UTC"}

	assert.Equal(t, []string{
		`-DVERSION_STRING=\"v1.2-abcdef12-dirty\"`,
		`-DTIMESTAMP_STRING=\"2026-03-07 13:04:05 UTC\"`,
	}, record.Definitions())
}

func TestManifestRoundTrip(t *testing.T) {
	g := Generator{VCS: fakeVCS{hash: "abcdef1234567890", branch: "dev", tag: "v3.0.0"}, Now: fixedNow}
	record := g.Generate(context.Background())
	path := filepath.Join(t.TempDir(), "app.elf"+ManifestSuffix)

	require.NoError(t, WriteManifest(path, record))
	loaded, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, record, loaded)
}
