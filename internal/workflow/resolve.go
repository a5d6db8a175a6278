package workflow

import (
	"context"
	"fmt"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/intake"
)

// ApplyResolution completes a pending conflicted cherry-pick
// with the given resolution: the merged file is written, staged,
// and the pick continued.
//
// If continuing reveals the pick became empty, it is skipped.
// If there is nothing left to commit, a commit is created manually
// so the commit's arrival is still recorded in history.
func (m *Machine) ApplyResolution(
	ctx context.Context,
	res conflict.Resolution,
	commit intake.PendingCommit,
	filePath string,
) error {
	if !res.OK {
		return fmt.Errorf("resolution did not produce a merge: %v", res.Explanation)
	}

	if err := m.wt.WriteFile(filePath, res.MergedContent); err != nil {
		return err
	}
	if err := m.wt.AddAll(ctx); err != nil {
		return &GitError{Stage: "add", Err: err}
	}

	outcome, err := m.wt.CherryPickContinue(ctx)
	if err != nil {
		return &GitError{Stage: "cherry-pick continue", Err: err}
	}

	switch outcome {
	case git.PickApplied:
		return nil

	case git.PickEmpty:
		if err := m.wt.CherryPickSkip(ctx); err != nil {
			return &GitError{Stage: "cherry-pick skip", Err: err}
		}
		return nil

	case git.PickNothingToCommit:
		msg := commit.Subject + " (conflict resolved)"
		if err := m.wt.CommitFromMessage(ctx, msg); err != nil {
			return &GitError{Stage: "commit", Err: err}
		}
		return nil

	default:
		return &ConflictError{Commit: commit, Info: m.readFirstConflict(ctx)}
	}
}

// FirstConflict reads the first conflicted file of the worktree,
// or nil if nothing is conflicted.
// It lets a fresh process pick up a conflict surfaced by an earlier one.
func (m *Machine) FirstConflict(ctx context.Context) *conflict.Info {
	return m.readFirstConflict(ctx)
}

// AbortResolution abandons a pending conflicted cherry-pick.
// If the abort itself fails, the working tree is hard-reset to HEAD.
// Best-effort: it always leaves the machine usable.
func (m *Machine) AbortResolution(ctx context.Context) {
	if err := m.wt.CherryPickAbort(ctx); err != nil {
		m.log.Warn("Cherry-pick abort failed; resetting instead", "err", err)
		if err := m.wt.ResetHard(ctx, "HEAD"); err != nil {
			m.log.Error("Reset after failed abort also failed", "err", err)
		}
	}
}
