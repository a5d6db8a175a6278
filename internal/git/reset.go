package git

import (
	"context"
	"fmt"
	"strconv"
)

// ResetHard resets the index and the working tree to the given commit-ish,
// discarding all local changes.
func (w *Worktree) ResetHard(ctx context.Context, commitish string) error {
	if err := w.git(ctx, "reset", "--hard", commitish).Run(w.exec); err != nil {
		return fmt.Errorf("reset --hard: %w", err)
	}
	return nil
}

// DropCommits discards the n most recent commits at HEAD,
// resetting the index and the working tree along with them.
func (w *Worktree) DropCommits(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return w.ResetHard(ctx, "HEAD~"+strconv.Itoa(n))
}
