// Package buildinfo derives the version metadata embedded into application builds.
package buildinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/util"
)

// DefaultTimeout bounds every single source-control query.
const DefaultTimeout = 5 * time.Second

// TimestampLayout is the format of the TIMESTAMP_STRING definition.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// Names of the compiler definitions injected into application builds.
const (
	VersionDefinition   = "VERSION_STRING"
	TimestampDefinition = "TIMESTAMP_STRING"
)

// Record is the build-info of a single build.
type Record struct {
	Version string `yaml:"version_string"`

	BuildID            string `yaml:"build_id"`
	BuildDate          string `yaml:"build_date"`
	BuildTime          string `yaml:"build_time"`
	BuildTimestamp     string `yaml:"build_timestamp"`
	BuildUnixTimestamp int64  `yaml:"build_unix_timestamp"`

	GitHash       string `yaml:"git_hash"`
	GitShortHash  string `yaml:"git_short_hash"`
	GitBranch     string `yaml:"git_branch"`
	GitTag        string `yaml:"git_tag"`
	GitDirty      bool   `yaml:"git_dirty"`
	GitCommitDate string `yaml:"git_commit_date"`

	BuildSystem  string `yaml:"build_system"`
	BuildMachine string `yaml:"build_machine"`
	BuildUser    string `yaml:"build_user"`
	ToolVersion  string `yaml:"tool_version"`

	AppName      string `yaml:"app_name,omitempty"`
	PlatformName string `yaml:"platform_name,omitempty"`
}

// Definitions returns the compiler definitions carrying the version and the timestamp,
// version first.
func (r Record) Definitions() []string {
	return []string{
		fmt.Sprintf(`-D%s=\"%s\"`, VersionDefinition, r.Version),
		fmt.Sprintf(`-D%s=\"%s\"`, TimestampDefinition, r.BuildTimestamp),
	}
}

// Generator collects build-info on a best-effort basis.
type Generator struct {
	VCS VCS

	// Timeout bounds each source-control query. Zero means DefaultTimeout.
	Timeout time.Duration

	// Now returns the build time. Nil means time.Now.
	Now func() time.Time

	AppName      string
	PlatformName string
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) timeout() time.Duration {
	if g.Timeout > 0 {
		return g.Timeout
	}
	return DefaultTimeout
}

// query runs `fn` under the per-query timeout. Failures, panics and answers arriving
// after the deadline are logged and reported as !ok.
func query[T any](ctx context.Context, g *Generator, what string, fn func(context.Context) (T, error)) (value T, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	var zero T
	defer func() {
		if r := recover(); r != nil {
			log.Debug("Could not get git %s: %v.\n", what, r)
			value, ok = zero, false
		}
	}()

	value, err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Debug("Could not get git %s: %s.\n", what, err)
		return zero, false
	}
	return value, true
}

func (g *Generator) vcs() VCS {
	if g.VCS == nil {
		return Unavailable{}
	}
	return g.VCS
}

func stringOrUnknown(value string, ok bool) string {
	if !ok || value == "" {
		return Unknown
	}
	return value
}

// Generate queries the source control and assembles the build-info record. It never fails:
// metadata that cannot be queried is recorded as Unknown.
func (g *Generator) Generate(ctx context.Context) Record {
	buildTime := g.now().UTC()
	vcs := g.vcs()

	hash := stringOrUnknown(query(ctx, g, "hash", vcs.Hash))
	branch := stringOrUnknown(query(ctx, g, "branch", vcs.Branch))
	tag := stringOrUnknown(query(ctx, g, "tag", vcs.Tag))
	dirty, _ := query(ctx, g, "dirty state", vcs.Dirty)
	commitDate := stringOrUnknown(query(ctx, g, "commit date", vcs.CommitDate))

	shortHash := ShortHash(hash)
	record := Record{
		Version:            DeriveVersion(tag, shortHash, dirty, branch, buildTime),
		BuildID:            uuid.NewString(),
		BuildDate:          buildTime.Format("2006-01-02"),
		BuildTime:          buildTime.Format("15:04:05"),
		BuildTimestamp:     buildTime.Format(TimestampLayout),
		BuildUnixTimestamp: buildTime.Unix(),
		GitHash:            hash,
		GitShortHash:       shortHash,
		GitBranch:          branch,
		GitTag:             tag,
		GitDirty:           dirty,
		GitCommitDate:      commitDate,
		BuildSystem:        runtime.GOOS,
		BuildMachine:       runtime.GOARCH,
		BuildUser:          buildUser(),
		ToolVersion:        util.VbtVersion.String(),
		AppName:            g.AppName,
		PlatformName:       g.PlatformName,
	}
	return record
}

func buildUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if user, ok := os.LookupEnv(key); ok && user != "" {
			return user
		}
	}
	return Unknown
}

// Print narrates the most relevant fields of `r`.
func Print(r Record) {
	log.Success("Build info generated:\n")
	log.IndentationLevel++
	defer func() { log.IndentationLevel-- }()
	log.Log("Version:    %s\n", r.Version)
	log.Log("Git Hash:   %s\n", r.GitShortHash)
	log.Log("Build Date: %s\n", r.BuildTimestamp)
	log.Log("Branch:     %s\n", r.GitBranch)
	if r.GitDirty {
		log.Warning("Working directory has uncommitted changes.\n")
	}
}
