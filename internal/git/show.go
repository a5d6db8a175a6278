package git

import (
	"context"
	"errors"
	"fmt"
)

// IndexStage identifies one of the three index stages
// of a file with merge conflicts.
type IndexStage int

const (
	// StageBase is the common ancestor version of the file.
	StageBase IndexStage = 1

	// StageOurs is the version of the file on the current HEAD.
	StageOurs IndexStage = 2

	// StageTheirs is the version of the file being merged in.
	StageTheirs IndexStage = 3
)

// ShowStage reads the contents of the given index stage of a conflicted file.
// It returns [ErrNotExist] if the stage is absent,
// as happens for files that exist on only one side of the conflict.
func (w *Worktree) ShowStage(ctx context.Context, stage IndexStage, path string) (string, error) {
	out, err := w.git(ctx,
		"show", fmt.Sprintf(":%d:%s", int(stage), path),
	).Output(w.exec)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("stage %d of %v: %w", int(stage), path, ErrNotExist)
		}
		return "", fmt.Errorf("show stage %d of %v: %w", int(stage), path, err)
	}
	return string(out), nil
}
