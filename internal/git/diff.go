package git

import (
	"context"
	"fmt"
)

// UnmergedPaths lists the paths of files
// that are currently in a conflicted state in the worktree,
// relative to the worktree root.
func (w *Worktree) UnmergedPaths(ctx context.Context) ([]string, error) {
	out, err := w.git(ctx,
		"diff", "--name-only", "--diff-filter=U",
	).Output(w.exec)
	if err != nil {
		return nil, fmt.Errorf("diff --diff-filter=U: %w", err)
	}

	var paths []string
	for line := range splitLines(out) {
		paths = append(paths, line)
	}
	return paths, nil
}
