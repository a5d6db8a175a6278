package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PickResult classifies the outcome of a cherry-pick operation.
type PickResult int

const (
	// PickApplied indicates that the commit was applied cleanly.
	PickApplied PickResult = iota

	// PickEmpty indicates that the cherry-pick stopped because
	// the resulting commit would be empty:
	// its changes are already present in the current HEAD.
	// The operation is still pending and must be skipped or aborted.
	PickEmpty

	// PickNothingToCommit indicates that the cherry-pick stopped
	// with nothing staged to commit.
	PickNothingToCommit

	// PickConflict indicates that the cherry-pick stopped
	// because of merge conflicts in the worktree.
	PickConflict
)

func (p PickResult) String() string {
	switch p {
	case PickApplied:
		return "applied"
	case PickEmpty:
		return "empty"
	case PickNothingToCommit:
		return "nothing-to-commit"
	case PickConflict:
		return "conflict"
	default:
		return fmt.Sprintf("PickResult(%d)", int(p))
	}
}

// CherryPick applies the given commit to the current HEAD,
// recording the origin with a "(cherry picked from commit ...)" trailer.
//
// Interruptions that have a defined continuation
// (conflicts, empty results) are reported as a [PickResult], not an error.
func (w *Worktree) CherryPick(ctx context.Context, commit Hash) (PickResult, error) {
	cmd := w.git(ctx, "cherry-pick", "-x", commit.String())
	err := cmd.Run(w.exec)
	return classifyPick("cherry-pick", cmd, err)
}

// CherryPickContinue finishes the pending cherry-pick
// after its conflicts have been resolved and staged.
func (w *Worktree) CherryPickContinue(ctx context.Context) (PickResult, error) {
	cmd := w.git(ctx, "cherry-pick", "--continue", "--no-edit")
	err := cmd.Run(w.exec)
	return classifyPick("cherry-pick continue", cmd, err)
}

// CherryPickSkip drops the pending commit
// and continues the remaining cherry-pick operations.
func (w *Worktree) CherryPickSkip(ctx context.Context) error {
	if err := w.git(ctx, "cherry-pick", "--skip").Run(w.exec); err != nil {
		return fmt.Errorf("cherry-pick skip: %w", err)
	}
	return nil
}

// CherryPickAbort cancels the pending cherry-pick operation
// and restores the state before it started.
func (w *Worktree) CherryPickAbort(ctx context.Context) error {
	if err := w.git(ctx, "cherry-pick", "--abort").Run(w.exec); err != nil {
		return fmt.Errorf("cherry-pick abort: %w", err)
	}
	return nil
}

// classifyPick maps a cherry-pick failure to a PickResult
// by probing the text Git reported.
// This is the only place such probing is allowed.
func classifyPick(name string, cmd *gitCmd, err error) (PickResult, error) {
	if err == nil {
		return PickApplied, nil
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	msg := strings.ToLower(cmd.capturedText())
	switch {
	// Checked before the conflict probe:
	// the empty-pick hint reads "..., possibly due to conflict resolution."
	case strings.Contains(msg, "cherry-pick is now empty"):
		return PickEmpty, nil
	case strings.Contains(msg, "could not apply") || strings.Contains(msg, "conflict"):
		return PickConflict, nil
	case strings.Contains(msg, "nothing to commit"):
		return PickNothingToCommit, nil
	default:
		return 0, err
	}
}
