package git

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/log/silog"
)

// ErrNotExist is returned when a ref or object cannot be resolved.
var ErrNotExist = errors.New("does not exist")

// runner carries everything needed to invoke git in one directory.
// Repository and Worktree both build on it.
type runner struct {
	dir  string
	log  *silog.Logger
	exec execer
}

// git prepares a command that runs in the runner's directory.
func (r runner) git(ctx context.Context, args ...string) *gitCmd {
	return newGitCmd(ctx, r.log, args...).Dir(r.dir)
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Log receives debug output from git invocations. Optional.
	Log *silog.Logger

	exec execer
}

// Repository reads a Git repository's refs and history.
// Anything that touches the working tree lives on [Worktree] instead.
type Repository struct {
	runner

	gitDir string
}

// Open locates the repository that owns dir
// (or the current directory, if dir is empty) and returns a handle to it.
func Open(ctx context.Context, dir string, opts OpenOptions) (*Repository, error) {
	if opts.exec == nil {
		opts.exec = _realExec
	}
	if opts.Log == nil {
		opts.Log = silog.Nop()
	}

	run := runner{dir: dir, log: opts.Log, exec: opts.exec}

	root, err := run.git(ctx, "rev-parse", "--show-toplevel").OutputString(run.exec)
	if err != nil {
		return nil, fmt.Errorf("locate worktree root: %w", err)
	}

	gitDir, err := run.git(ctx, "rev-parse", "--absolute-git-dir").OutputString(run.exec)
	if err != nil {
		return nil, fmt.Errorf("locate git directory: %w", err)
	}

	run.dir = root
	return &Repository{runner: run, gitDir: gitDir}, nil
}

// GitDir returns the absolute path to the repository's .git directory.
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Head reports the commit currently at HEAD.
func (r *Repository) Head(ctx context.Context) (Hash, error) {
	return r.resolveRef(ctx, "HEAD")
}

// resolveRef resolves a ref to a commit hash,
// reporting [ErrNotExist] for refs that don't resolve.
func (r *Repository) resolveRef(ctx context.Context, ref string) (Hash, error) {
	// --quiet --verify: no output and a plain failure
	// when the ref is absent, which callers treat as a state,
	// not an error worth surfacing.
	out, err := r.git(ctx, "rev-parse", "--quiet", "--verify", ref).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("%v: %w", ref, ErrNotExist)
	}
	return Hash(out), nil
}
