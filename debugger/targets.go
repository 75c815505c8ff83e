package debugger

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrTargetTimeout is returned by WaitForTarget when the target did not show up in time.
var ErrTargetTimeout = errors.New("timed out waiting for target")

// Probe reports whether a debug target is available.
type Probe func(ctx context.Context) (bool, error)

// WaitForTarget calls `probe` every `interval` until it reports the target, and returns
// the number of attempts made. Attempts start `interval` apart; a probe that takes
// longer than `interval` is followed by the next attempt right away. A zero `timeout`
// waits for as long as `ctx` allows.
func WaitForTarget(ctx context.Context, probe Probe, interval, timeout time.Duration) (int, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if interval <= 0 {
		interval = DefaultTargetInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempts := 1; ; attempts++ {
		found, err := probe(ctx)
		if found {
			return attempts, nil
		}
		if err != nil && ctx.Err() == nil {
			return attempts, err
		}

		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				return attempts, parent.Err()
			}
			return attempts, fmt.Errorf("%w after %d attempts in %s", ErrTargetTimeout, attempts, timeout)
		case <-ticker.C:
		}
	}
}

// Target is an entry of the xsdb target listing.
type Target struct {
	ID       int
	Name     string
	State    string
	Selected bool
}

// prompt is printed by xsdb when it waits for the next command.
const prompt = "xsdb%"

// Matches a listing line such as `   4* Hart #0 (Running)`. The selected target is
// marked with an asterisk.
var targetLineRegexp = regexp.MustCompile(`^\s*(\*)?\s*(\d+)(\*)?\s+(.*?)(?:\s+\(([^()]*)\))?\s*$`)

// ParseTargets parses the output of the xsdb `targets` command. Lines that are not
// target entries are skipped.
func ParseTargets(output string) []Target {
	targets := []Target{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		for strings.HasPrefix(strings.TrimSpace(line), prompt) {
			line = strings.TrimPrefix(strings.TrimSpace(line), prompt)
		}
		match := targetLineRegexp.FindStringSubmatch(line)
		if match == nil || match[4] == "" {
			continue
		}
		id, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		targets = append(targets, Target{
			ID:       id,
			Name:     match[4],
			State:    match[5],
			Selected: match[1] == "*" || match[3] == "*",
		})
	}
	return targets
}

// MatchTarget reports whether `name` matches the glob `pattern`, ignoring case, the way
// the `-nocase` name filter of xsdb does.
func MatchTarget(pattern, name string) bool {
	matched, err := path.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && matched
}

// FindTarget returns the first target in `targets` whose name matches `pattern`.
func FindTarget(targets []Target, pattern string) (Target, bool) {
	for _, target := range targets {
		if MatchTarget(pattern, target.Name) {
			return target, true
		}
	}
	return Target{}, false
}
