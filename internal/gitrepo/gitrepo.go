// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gitrepo answers historical-state questions against a git
// repository: current HEAD, commit timestamps, file diffs between two
// commits, and file contents at a commit. It is the only package that
// shells out to git; everything downstream depends on the Provider
// interface and is testable with a fake.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/readings-engine/pkg/types"
)

const binGit = "git"

// ErrUnavailable indicates the git binary or the repository is missing.
// Fatal for an extraction run.
var ErrUnavailable = errors.New("git repository unavailable")

// ErrNotFoundAtCommit indicates a path did not exist at the requested
// commit. Expected for genuinely new files; callers branch on it rather
// than treating it as a failure.
var ErrNotFoundAtCommit = errors.New("path not found at commit")

// Provider abstracts read-only queries against version-control history.
type Provider interface {
	// Head returns the current HEAD commit hash.
	Head(ctx context.Context) (string, error)

	// CommitTimestamp returns the committer timestamp of commit, ISO-8601.
	CommitTimestamp(ctx context.Context, commit string) (string, error)

	// DiffNameStatus lists files matching pattern that differ between
	// two commits, each tagged Added/Modified/Deleted. Paths are
	// relative to the repository root; ordering follows git's output,
	// which is deterministic for a given pair of commits.
	DiffNameStatus(ctx context.Context, from, to, pattern string) ([]types.FileChange, error)

	// ShowFile returns the contents of path (relative to the repository
	// root) at commit. Returns ErrNotFoundAtCommit when the path did not
	// exist there.
	ShowFile(ctx context.Context, commit, path string) (string, error)

	// LineAddedDate resolves when a line matching the given literal text
	// was introduced, via git blame at commit. Returns a YYYY-MM-DD date,
	// or "" when the line cannot be resolved (not an error).
	LineAddedDate(ctx context.Context, commit, path, line string) (string, error)
}

// runner abstracts command execution for testing.
type runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// osRunner is the production runner backed by os/exec.
type osRunner struct{}

func (osRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// CLI is the git-backed Provider. Every call shells out to the git
// binary in the repository root and blocks until it returns or the
// configured timeout cancels it.
type CLI struct {
	root    string
	timeout time.Duration
	exec    runner
}

// New verifies that the git binary exists and that root is a repository,
// then returns a CLI provider. A zero timeout means no per-call bound.
func New(root string, timeout time.Duration) (*CLI, error) {
	return newCLI(root, timeout, osRunner{})
}

func newCLI(root string, timeout time.Duration, exec runner) (*CLI, error) {
	if _, err := exec.LookPath(binGit); err != nil {
		return nil, fmt.Errorf("%w: git binary not on PATH", ErrUnavailable)
	}
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return nil, fmt.Errorf("%w: no .git in %s", ErrUnavailable, root)
	}
	return &CLI{root: root, timeout: timeout, exec: exec}, nil
}

// Root returns the repository root the provider operates on.
func (c *CLI) Root() string { return c.root }

// FindRoot walks up from start looking for a .git directory. Returns
// ErrUnavailable when no repository encloses start.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no repository at or above %s", ErrUnavailable, start)
		}
		dir = parent
	}
}

func (c *CLI) run(ctx context.Context, args ...string) (string, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.exec.Run(ctx, c.root, binGit, args...)
}

func (c *CLI) Head(ctx context.Context) (string, error) {
	out, stderr, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: rev-parse HEAD: %s", ErrUnavailable, firstLine(stderr))
	}
	return strings.TrimSpace(out), nil
}

func (c *CLI) CommitTimestamp(ctx context.Context, commit string) (string, error) {
	out, stderr, err := c.run(ctx, "show", "-s", "--format=%cI", commit)
	if err != nil {
		return "", fmt.Errorf("commit timestamp for %s: %s: %w", commit, firstLine(stderr), err)
	}
	return strings.TrimSpace(out), nil
}

func (c *CLI) DiffNameStatus(ctx context.Context, from, to, pattern string) ([]types.FileChange, error) {
	out, stderr, err := c.run(ctx, "diff", "--name-status", from+".."+to, "--", pattern)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %s: %w", from, to, firstLine(stderr), err)
	}

	var changes []types.FileChange
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		// Format: <status>\t<path>, or <status>\t<old>\t<new> for
		// renames and copies.
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		status, path := parts[0], parts[1]
		switch {
		case strings.HasPrefix(status, "R"), strings.HasPrefix(status, "C"):
			// Renames and copies surface as a modification of the new path.
			status = string(types.StatusModified)
			path = parts[len(parts)-1]
		case status != "A" && status != "M" && status != "D":
			status = string(types.StatusModified)
		}

		changes = append(changes, types.FileChange{
			Path:   path,
			Status: types.FileStatus(status),
		})
	}
	return changes, nil
}

func (c *CLI) ShowFile(ctx context.Context, commit, path string) (string, error) {
	out, stderr, err := c.run(ctx, "show", commit+":"+path)
	if err != nil {
		if isPathMissing(stderr) {
			return "", fmt.Errorf("%s at %s: %w", path, commit, ErrNotFoundAtCommit)
		}
		return "", fmt.Errorf("show %s:%s: %s: %w", commit, path, firstLine(stderr), err)
	}
	return out, nil
}

func (c *CLI) LineAddedDate(ctx context.Context, commit, path, line string) (string, error) {
	out, _, err := c.run(ctx,
		"blame", "--porcelain",
		"-L", "/"+regexp.QuoteMeta(line)+"/,+1",
		commit, "--", path,
	)
	if err != nil {
		// Line moved, file renamed, shallow history: all mean "unknown",
		// not a failed run.
		return "", nil
	}

	for _, l := range strings.Split(out, "\n") {
		if after, ok := strings.CutPrefix(l, "author-time "); ok {
			unix, err := strconv.ParseInt(strings.TrimSpace(after), 10, 64)
			if err != nil {
				return "", nil
			}
			return time.Unix(unix, 0).UTC().Format("2006-01-02"), nil
		}
	}
	return "", nil
}

// isPathMissing recognizes the git show errors for a path absent at a
// commit, which vary across git versions.
func isPathMissing(stderr string) bool {
	return strings.Contains(stderr, "does not exist") ||
		strings.Contains(stderr, "exists on disk, but not in")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
