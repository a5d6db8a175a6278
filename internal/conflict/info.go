package conflict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liminality-dev/resonate/internal/git"
)

// Info describes the full conflicted state of one file:
// the three index stages and the marked-up on-disk contents.
type Info struct {
	// Path is the file's path relative to the worktree root.
	Path string

	// Base, Ours, and Theirs are the index stages of the file.
	// Any of them may be nil: a file added on only one side
	// has no base, and deletions drop a side entirely.
	Base   *string
	Ours   *string
	Theirs *string

	// Raw is the on-disk contents, markers included.
	Raw string

	// Regions are the parsed conflict regions of Raw.
	Regions []Region
}

// GitWorktree is the subset of the git.Worktree API
// needed to read a conflicted file.
type GitWorktree interface {
	ReadFile(path string) (string, error)
	ShowStage(ctx context.Context, stage git.IndexStage, path string) (string, error)
}

var _ GitWorktree = (*git.Worktree)(nil)

// ReadInfo reads the conflicted state of the file at path.
// It returns nil if the on-disk file carries no conflict markers.
func ReadInfo(ctx context.Context, wt GitWorktree, path string) (*Info, error) {
	raw, err := wt.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conflicted file: %w", err)
	}

	if !strings.Contains(raw, _markerOurs) {
		return nil, nil
	}

	info := &Info{
		Path:    path,
		Raw:     raw,
		Regions: ParseMarkers(raw),
	}

	for stage, dst := range map[git.IndexStage]**string{
		git.StageBase:   &info.Base,
		git.StageOurs:   &info.Ours,
		git.StageTheirs: &info.Theirs,
	} {
		content, err := wt.ShowStage(ctx, stage, path)
		if err != nil {
			if errors.Is(err, git.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read stage %d: %w", int(stage), err)
		}
		*dst = &content
	}

	return info, nil
}
