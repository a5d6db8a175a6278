package workflow

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// _journalName is where the active preview is journaled,
// relative to the worktree's .git directory.
const _journalName = "resonate/preview.json"

func (m *Machine) journalPath() string {
	return filepath.Join(m.wt.GitDir(), filepath.FromSlash(_journalName))
}

// writeJournal snapshots the active preview beside the repository
// so that a crashed or restarted process can find it again.
// Journal failures never fail the preview; they only cost recovery.
func (m *Machine) writeJournal() {
	if m.preview == nil {
		return
	}

	bs, err := json.MarshalIndent(m.preview, "", "  ")
	if err != nil {
		m.log.Warn("Cannot encode preview journal", "err", err)
		return
	}

	path := m.journalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.log.Warn("Cannot create journal directory", "err", err)
		return
	}
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		m.log.Warn("Cannot write preview journal", "path", path, "err", err)
	}
}

func (m *Machine) clearJournal() {
	if err := os.Remove(m.journalPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn("Cannot remove preview journal", "err", err)
	}
}

// StalePreview reads a preview journal left behind by an earlier
// process, or nil if there is none. The machine stays idle.
func (m *Machine) StalePreview() *PreviewState {
	bs, err := os.ReadFile(m.journalPath())
	if err != nil {
		return nil
	}

	var p PreviewState
	if err := json.Unmarshal(bs, &p); err != nil {
		m.log.Warn("Ignoring unreadable preview journal", "err", err)
		return nil
	}
	return &p
}

// ResumePreview adopts a journaled preview as the active one,
// letting a fresh process commit, reject, or cancel a preview
// started by an earlier one.
func (m *Machine) ResumePreview() error {
	if m.preview != nil {
		return ErrPreviewInProgress
	}

	p := m.StalePreview()
	if p == nil {
		return ErrNoPreview
	}

	m.preview = p
	return nil
}
