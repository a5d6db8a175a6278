package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoChanges is returned when there are no changes to stash.
var ErrNoChanges = errors.New("no changes to stash")

// StashPush stashes the worktree's uncommitted changes,
// including untracked files, and reports the hash of the stash entry.
// Returns [ErrNoChanges] if there was nothing to stash.
func (w *Worktree) StashPush(ctx context.Context, message string) (Hash, error) {
	args := []string{"stash", "push", "--include-untracked"}
	if message != "" {
		args = append(args, "-m", message)
	}

	// 'stash push' exits zero even when there was nothing to stash,
	// so compare the stash ref before and after instead.
	before, _ := w.repo.resolveRef(ctx, "refs/stash")

	if err := w.git(ctx, args...).Run(w.exec); err != nil {
		return ZeroHash, fmt.Errorf("stash push: %w", err)
	}

	after, err := w.repo.resolveRef(ctx, "refs/stash")
	if err != nil || after == before {
		return ZeroHash, ErrNoChanges
	}
	return after, nil
}

// StashPop applies the most recent stash entry
// and removes it from the stash stack.
func (w *Worktree) StashPop(ctx context.Context) error {
	if err := w.git(ctx, "stash", "pop").Run(w.exec); err != nil {
		return fmt.Errorf("stash pop: %w", err)
	}
	return nil
}
