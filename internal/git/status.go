package git

import (
	"context"
	"fmt"
)

// IsDirty reports whether the worktree has any uncommitted changes,
// staged or unstaged, including untracked files.
func (w *Worktree) IsDirty(ctx context.Context) (bool, error) {
	out, err := w.git(ctx, "status", "--porcelain").Output(w.exec)
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return len(out) > 0, nil
}
