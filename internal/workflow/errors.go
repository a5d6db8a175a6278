package workflow

import (
	"errors"
	"fmt"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/intake"
)

// Sentinel errors for illegal state transitions.
var (
	// ErrPreviewInProgress is returned when an operation
	// requires the machine to be idle but a preview is active.
	ErrPreviewInProgress = errors.New("a preview is already in progress")

	// ErrNoPreview is returned when an operation
	// requires an active preview and there is none.
	ErrNoPreview = errors.New("no preview is in progress")
)

// ConflictError reports that applying a commit stopped on a merge
// conflict the resolvers must handle.
//
// When this error is returned, any commits applied earlier in the same
// call have been rolled back and the stash (if any) has been restored,
// but the conflicting cherry-pick is still pending in Git:
// the caller's next step must be ApplyResolution or AbortResolution.
type ConflictError struct {
	// Commit is the commit that could not be applied.
	Commit intake.PendingCommit

	// Info is the parsed state of the first conflicted file.
	Info *conflict.Info
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge conflict applying %v (%v)",
		e.Commit.LocalHash.Short(), e.Commit.Subject)
}

// GitError reports a Git command failing outside the classified cases.
// The working tree has been rolled back before this is returned.
type GitError struct {
	// Stage names the operation that failed, e.g. "cherry-pick".
	Stage string

	// Err is the underlying failure.
	Err error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Stage, e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }
