package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrDetachedHead indicates that the worktree is not on a branch.
var ErrDetachedHead = errors.New("in detached HEAD state")

// CurrentBranch reports the name of the branch checked out in the worktree.
// It returns [ErrDetachedHead] if the worktree is not on a branch.
func (w *Worktree) CurrentBranch(ctx context.Context) (string, error) {
	name, err := w.git(ctx, "branch", "--show-current").OutputString(w.exec)
	if err != nil {
		return "", fmt.Errorf("branch --show-current: %w", err)
	}
	if name == "" {
		return "", ErrDetachedHead
	}
	return name, nil
}
