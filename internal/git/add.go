package git

import (
	"context"
	"fmt"
)

// Add stages changes to the given paths.
func (w *Worktree) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if err := w.git(ctx, args...).Run(w.exec); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// AddAll stages all changes in the worktree,
// including deletions and untracked files.
func (w *Worktree) AddAll(ctx context.Context) error {
	if err := w.git(ctx, "add", "-A").Run(w.exec); err != nil {
		return fmt.Errorf("add -A: %w", err)
	}
	return nil
}
