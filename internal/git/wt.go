package git

import (
	"fmt"
	"os"
	"path/filepath"
)

// Worktree is the checked-out side of a repository:
// the verbs that read or change files on disk
// (status, stash, cherry-pick, reset) hang off it,
// keeping read-only history access on [Repository] separate.
type Worktree struct {
	runner

	gitDir string
	repo   *Repository
}

// Worktree returns the repository's primary working tree.
func (r *Repository) Worktree() *Worktree {
	return &Worktree{
		runner: r.runner,
		gitDir: r.gitDir,
		repo:   r,
	}
}

// RootDir returns the absolute path to the top of the worktree.
func (w *Worktree) RootDir() string {
	return w.dir
}

// GitDir returns the absolute path to the worktree's .git directory.
func (w *Worktree) GitDir() string {
	return w.gitDir
}

// ReadFile reads the on-disk contents of a file in the worktree.
// path is relative to the worktree root.
func (w *Worktree) ReadFile(path string) (string, error) {
	bs, err := os.ReadFile(filepath.Join(w.dir, path))
	if err != nil {
		return "", fmt.Errorf("read %v: %w", path, err)
	}
	return string(bs), nil
}

// WriteFile replaces the on-disk contents of a file in the worktree.
// path is relative to the worktree root.
// Parent directories are created as needed.
func (w *Worktree) WriteFile(path, content string) error {
	dst := filepath.Join(w.dir, path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %v: %w", path, err)
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %v: %w", path, err)
	}
	return nil
}
