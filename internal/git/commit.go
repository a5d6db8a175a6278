package git

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// CommitRequest is a request to commit staged changes.
// It relies on the 'git commit' command.
type CommitRequest struct {
	// Message is the commit message.
	// Exactly one of Message and MessageFile must be set.
	Message string

	// MessageFile is a path to a file holding the commit message.
	MessageFile string

	// AllowEmpty allows a commit with no changes.
	AllowEmpty bool

	// NoVerify bypasses pre-commit and commit-msg hooks.
	NoVerify bool
}

// Commit creates a commit from the staged changes.
func (w *Worktree) Commit(ctx context.Context, req CommitRequest) error {
	if (req.Message == "") == (req.MessageFile == "") {
		return errors.New("exactly one of Message and MessageFile is required")
	}

	args := []string{"commit"}
	if req.Message != "" {
		args = append(args, "-m", req.Message)
	}
	if req.MessageFile != "" {
		args = append(args, "-F", req.MessageFile)
	}
	if req.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	if req.NoVerify {
		args = append(args, "--no-verify")
	}

	if err := w.git(ctx, args...).Run(w.exec); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CommitFromMessage commits staged changes with the given message,
// writing it through a temporary file so that
// multi-line messages survive intact.
func (w *Worktree) CommitFromMessage(ctx context.Context, message string) error {
	f, err := os.CreateTemp("", "commit-msg-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.WriteString(message); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return w.Commit(ctx, CommitRequest{MessageFile: f.Name()})
}
