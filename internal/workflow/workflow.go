// Package workflow drives the cherry-pick lifecycle:
// previewing, accepting, rejecting, and cancelling peer commits,
// with the user's own uncommitted work stashed out of harm's way
// and every failure path rolling the working tree back.
package workflow

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/intake"
	"github.com/liminality-dev/resonate/internal/ledger"
	"github.com/liminality-dev/resonate/internal/peers"
)

// GitRepository is the subset of the git.Repository API
// used by the state machine.
type GitRepository interface {
	Head(ctx context.Context) (git.Hash, error)
	RecentCommits(ctx context.Context, n int) ([]git.Hash, error)
}

var _ GitRepository = (*git.Repository)(nil)

// GitWorktree is the subset of the git.Worktree API
// used by the state machine.
type GitWorktree interface {
	RootDir() string
	GitDir() string

	IsDirty(ctx context.Context) (bool, error)
	StashPush(ctx context.Context, message string) (git.Hash, error)
	StashPop(ctx context.Context) error

	CherryPick(ctx context.Context, commit git.Hash) (git.PickResult, error)
	CherryPickContinue(ctx context.Context) (git.PickResult, error)
	CherryPickSkip(ctx context.Context) error
	CherryPickAbort(ctx context.Context) error

	DropCommits(ctx context.Context, n int) error
	ResetHard(ctx context.Context, commitish string) error

	Add(ctx context.Context, paths ...string) error
	AddAll(ctx context.Context) error
	CommitFromMessage(ctx context.Context, message string) error

	UnmergedPaths(ctx context.Context) ([]string, error)
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	ShowStage(ctx context.Context, stage git.IndexStage, path string) (string, error)
}

var _ GitWorktree = (*git.Worktree)(nil)

// LedgerStore is the subset of the ledger.Store API
// used by the state machine.
type LedgerStore interface {
	RecordAcceptances(path string, project peers.ProjectID, accs []ledger.Acceptance) error
	RecordRejections(path string, project peers.ProjectID, rejs []ledger.Rejection) error
	Adaptation(path string, project peers.ProjectID, origin git.Hash) (*ledger.Adaptation, error)
	PutAdaptation(path string, project peers.ProjectID, adapt *ledger.Adaptation) error
	RemoveAdaptation(path string, project peers.ProjectID, origin git.Hash) error
}

var _ LedgerStore = (*ledger.Store)(nil)

// PreviewState is the record of an active preview:
// commits applied on top of the pre-preview HEAD,
// reversible until committed or rejected.
type PreviewState struct {
	Project      peers.ProjectID        `json:"project"`
	WorktreePath string                 `json:"worktree_path"`
	Previewed    []intake.PendingCommit `json:"previewed"`

	// AppliedCount is the number of commits sitting on top of
	// the HEAD observed when the preview started.
	// Commits skipped as already-integrated are not counted
	// and do not appear in Previewed.
	AppliedCount int `json:"applied_count"`

	Stashed  bool   `json:"stashed"`
	StashRef string `json:"stash_ref,omitempty"`
}

// Machine is the cherry-pick workflow state machine.
// It is either idle or holds exactly one active preview.
//
// The machine is not reentrant: callers must not start a second
// operation while one is in flight on the same machine.
type Machine struct {
	repo    GitRepository
	wt      GitWorktree
	ledgers LedgerStore
	log     *silog.Logger

	preview *PreviewState
}

// NewMachine builds a workflow state machine over the given collaborators.
func NewMachine(repo GitRepository, wt GitWorktree, ledgers LedgerStore, log *silog.Logger) *Machine {
	if log == nil {
		log = silog.Nop()
	}
	return &Machine{
		repo:    repo,
		wt:      wt,
		ledgers: ledgers,
		log:     log,
	}
}

// Preview returns the active preview state, or nil when idle.
func (m *Machine) Preview() *PreviewState {
	return m.preview
}

// IsPreviewActive reports whether a preview is active.
func (m *Machine) IsPreviewActive() bool {
	return m.preview != nil
}

// StartPreview applies the given commits to the working tree,
// oldest first, stashing any uncommitted changes beforehand.
//
// On a conflict with no usable stored adaptation,
// earlier applied commits are rolled back, the stash is restored,
// and a [*ConflictError] is returned with the pick still pending in Git.
// Any other failure rolls everything back and returns the error.
func (m *Machine) StartPreview(
	ctx context.Context,
	project peers.ProjectID,
	commits []intake.PendingCommit,
	adapter *peers.PeerRef,
) error {
	if m.preview != nil {
		return ErrPreviewInProgress
	}

	stashed, stashRef, err := m.stashIfDirty(ctx)
	if err != nil {
		return err
	}

	applied, err := m.applyCommits(ctx, project, commits, adapter, stashed)
	if err != nil {
		return err
	}

	m.preview = &PreviewState{
		Project:      project,
		WorktreePath: m.wt.RootDir(),
		Previewed:    applied,
		AppliedCount: len(applied),
		Stashed:      stashed,
		StashRef:     stashRef.String(),
	}
	m.writeJournal()
	return nil
}

// CommitPreview makes the active preview permanent:
// the applied commits stay, acceptances are recorded in the ledger
// at ledgerPath, and the stash is restored.
func (m *Machine) CommitPreview(ctx context.Context, ledgerPath string) error {
	if m.preview == nil {
		return ErrNoPreview
	}
	p := m.preview

	accs, err := m.collectAcceptances(ctx, p)
	if err != nil {
		return err
	}
	if err := m.ledgers.RecordAcceptances(ledgerPath, p.Project, accs); err != nil {
		return fmt.Errorf("record acceptances: %w", err)
	}

	if err := m.popStash(ctx, p); err != nil {
		m.clearPreview()
		return err
	}

	m.clearPreview()
	return nil
}

// RejectPreview undoes the active preview:
// applied commits are discarded, rejections are recorded
// in the ledger at ledgerPath, and the stash is restored.
func (m *Machine) RejectPreview(ctx context.Context, ledgerPath string) error {
	if m.preview == nil {
		return ErrNoPreview
	}
	p := m.preview

	if err := m.wt.DropCommits(ctx, p.AppliedCount); err != nil {
		return &GitError{Stage: "reset", Err: err}
	}
	// The commits are gone; keep the count true in case
	// the ledger write below fails and the preview stays active.
	p.AppliedCount = 0
	m.writeJournal()

	rejs := make([]ledger.Rejection, len(p.Previewed))
	for i, pc := range p.Previewed {
		rejs[i] = ledger.Rejection{
			OriginHash: pc.OriginHash,
			Subject:    pc.Subject,
		}
	}
	if err := m.ledgers.RecordRejections(ledgerPath, p.Project, rejs); err != nil {
		return fmt.Errorf("record rejections: %w", err)
	}

	if err := m.popStash(ctx, p); err != nil {
		m.clearPreview()
		return err
	}

	m.clearPreview()
	return nil
}

// CancelPreview undoes the active preview without recording anything.
func (m *Machine) CancelPreview(ctx context.Context) error {
	if m.preview == nil {
		return ErrNoPreview
	}
	p := m.preview

	if err := m.wt.DropCommits(ctx, p.AppliedCount); err != nil {
		return &GitError{Stage: "reset", Err: err}
	}

	if err := m.popStash(ctx, p); err != nil {
		m.clearPreview()
		return err
	}

	m.clearPreview()
	return nil
}

// ForceCleanup unconditionally forgets the active preview.
// The working tree is not touched; this exists for crash recovery.
func (m *Machine) ForceCleanup() {
	m.clearPreview()
}

// AcceptNow applies the given commits and records their acceptance
// in one step, without leaving a preview behind.
// Conflicts are intercepted exactly as in StartPreview.
func (m *Machine) AcceptNow(
	ctx context.Context,
	project peers.ProjectID,
	peer peers.PeerRef,
	commits []intake.PendingCommit,
) error {
	if m.preview != nil {
		return ErrPreviewInProgress
	}

	stashed, _, err := m.stashIfDirty(ctx)
	if err != nil {
		return err
	}

	applied, err := m.applyCommits(ctx, project, commits, &peer, stashed)
	if err != nil {
		return err
	}

	state := &PreviewState{Project: project, Previewed: applied, AppliedCount: len(applied)}
	accs, err := m.collectAcceptances(ctx, state)
	if err != nil {
		return err
	}
	if err := m.ledgers.RecordAcceptances(peer.LedgerPath, project, accs); err != nil {
		return fmt.Errorf("record acceptances: %w", err)
	}

	if stashed {
		if err := m.wt.StashPop(ctx); err != nil {
			return &GitError{Stage: "stash pop", Err: err}
		}
	}
	return nil
}

// RejectNow records rejections for the given commits,
// optionally with a reason. It has no Git side effects.
func (m *Machine) RejectNow(
	project peers.ProjectID,
	peer peers.PeerRef,
	commits []intake.PendingCommit,
	reason string,
) error {
	rejs := make([]ledger.Rejection, len(commits))
	for i, pc := range commits {
		rejs[i] = ledger.Rejection{
			OriginHash: pc.OriginHash,
			Subject:    pc.Subject,
			Reason:     reason,
		}
	}
	if err := m.ledgers.RecordRejections(peer.LedgerPath, project, rejs); err != nil {
		return fmt.Errorf("record rejections: %w", err)
	}
	return nil
}

// applyCommits cherry-picks the commits oldest first
// and returns the ones that landed as new commits.
//
// Empty picks are skipped and not returned.
// On conflict or failure the tree is rolled back as documented
// on [Machine.StartPreview] before the error is returned.
func (m *Machine) applyCommits(
	ctx context.Context,
	project peers.ProjectID,
	commits []intake.PendingCommit,
	adapter *peers.PeerRef,
	stashed bool,
) ([]intake.PendingCommit, error) {
	ordered := slices.Clone(commits)
	slices.SortFunc(ordered, func(a, b intake.PendingCommit) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.LocalHash, b.LocalHash)
	})

	var applied []intake.PendingCommit
	for _, pc := range ordered {
		res, err := m.wt.CherryPick(ctx, pc.CherryPickRef)
		if err != nil {
			m.rollback(ctx, len(applied), stashed, true)
			return nil, &GitError{Stage: "cherry-pick", Err: err}
		}

		switch res {
		case git.PickApplied:
			applied = append(applied, pc)

		case git.PickEmpty, git.PickNothingToCommit:
			// Already integrated; drop it and move on.
			if err := m.wt.CherryPickSkip(ctx); err != nil {
				m.rollback(ctx, len(applied), stashed, true)
				return nil, &GitError{Stage: "cherry-pick skip", Err: err}
			}

		case git.PickConflict:
			if adapter != nil {
				replayed, counted := m.replayAdaptation(ctx, *adapter, project, pc)
				if replayed {
					if counted {
						applied = append(applied, pc)
					}
					continue
				}
			}

			info := m.readFirstConflict(ctx)

			// Roll earlier commits and the stash back,
			// but leave this pick pending in Git:
			// the caller resolves or aborts it next.
			m.rollback(ctx, len(applied), stashed, false)
			return nil, &ConflictError{Commit: pc, Info: info}
		}
	}

	return applied, nil
}

// replayAdaptation re-applies a stored conflict resolution.
// It reports whether the conflict was handled and,
// if so, whether a new commit was created.
//
// A stored adaptation that no longer completes the pick is stale:
// it is deleted and the conflict falls through to the caller.
func (m *Machine) replayAdaptation(
	ctx context.Context,
	peer peers.PeerRef,
	project peers.ProjectID,
	pc intake.PendingCommit,
) (replayed, counted bool) {
	adapt, err := m.ledgers.Adaptation(peer.LedgerPath, project, pc.OriginHash)
	if err != nil || adapt == nil {
		return false, false
	}

	m.log.Debug("Replaying stored adaptation",
		"origin", pc.OriginHash,
		"files", len(adapt.Files),
	)

	paths := make([]string, 0, len(adapt.Files))
	for path, content := range adapt.Files {
		if err := m.wt.WriteFile(path, content); err != nil {
			m.log.Warn("Cannot write adaptation file", "path", path, "err", err)
			return false, false
		}
		paths = append(paths, path)
	}

	// Stage only the adaptation's own files:
	// other files may still carry markers
	// and must stay unmerged for conflict surfacing.
	if err := m.wt.Add(ctx, paths...); err != nil {
		return false, false
	}

	res, err := m.wt.CherryPickContinue(ctx)
	if err != nil {
		m.discardStaleAdaptation(peer, project, pc.OriginHash)
		return false, false
	}

	switch res {
	case git.PickApplied:
		return true, true
	case git.PickEmpty:
		if err := m.wt.CherryPickSkip(ctx); err != nil {
			return false, false
		}
		return true, false
	default:
		m.discardStaleAdaptation(peer, project, pc.OriginHash)
		return false, false
	}
}

func (m *Machine) discardStaleAdaptation(peer peers.PeerRef, project peers.ProjectID, origin git.Hash) {
	m.log.Info("Stored adaptation no longer applies; discarding",
		"peer", peer.DisplayName,
		"origin", origin,
	)
	if err := m.ledgers.RemoveAdaptation(peer.LedgerPath, project, origin); err != nil {
		m.log.Warn("Cannot remove stale adaptation", "origin", origin, "err", err)
	}
}

// readFirstConflict parses the first conflicted file, if any.
func (m *Machine) readFirstConflict(ctx context.Context) *conflict.Info {
	paths, err := m.wt.UnmergedPaths(ctx)
	if err != nil || len(paths) == 0 {
		m.log.Warn("Conflict reported but no unmerged files found", "err", err)
		return nil
	}

	info, err := conflict.ReadInfo(ctx, m.wt, paths[0])
	if err != nil {
		m.log.Warn("Cannot read conflicted file", "path", paths[0], "err", err)
		return nil
	}
	return info
}

// rollback reverts the working tree after a failed apply:
// optionally aborts the pending pick, drops the commits applied
// so far, and restores the stash. Best-effort throughout.
func (m *Machine) rollback(ctx context.Context, applied int, stashed, abortPick bool) {
	if abortPick {
		if err := m.wt.CherryPickAbort(ctx); err != nil {
			m.log.Warn("Cannot abort cherry-pick during rollback", "err", err)
		}
	}

	if err := m.wt.DropCommits(ctx, applied); err != nil {
		m.log.Error("Cannot drop applied commits during rollback",
			"count", applied,
			"err", err,
		)
	}

	if stashed {
		if err := m.wt.StashPop(ctx); err != nil {
			m.log.Error("Cannot restore stashed changes; user action required",
				"err", err,
			)
		}
	}
}

// stashIfDirty stashes uncommitted changes if there are any.
func (m *Machine) stashIfDirty(ctx context.Context) (stashed bool, ref git.Hash, err error) {
	dirty, err := m.wt.IsDirty(ctx)
	if err != nil {
		return false, git.ZeroHash, &GitError{Stage: "status", Err: err}
	}
	if !dirty {
		return false, git.ZeroHash, nil
	}

	ref, err = m.wt.StashPush(ctx, "resonate: pre-preview stash")
	if err != nil {
		if errors.Is(err, git.ErrNoChanges) {
			return false, git.ZeroHash, nil
		}
		return false, git.ZeroHash, &GitError{Stage: "stash push", Err: err}
	}
	return true, ref, nil
}

// collectAcceptances aligns the preview's applied commits with the
// hashes they received locally, oldest first.
func (m *Machine) collectAcceptances(ctx context.Context, p *PreviewState) ([]ledger.Acceptance, error) {
	var hashes []git.Hash
	if p.AppliedCount > 0 {
		var err error
		hashes, err = m.repo.RecentCommits(ctx, p.AppliedCount)
		if err != nil {
			return nil, &GitError{Stage: "log", Err: err}
		}
		slices.Reverse(hashes) // newest-first to oldest-first
	}

	accs := make([]ledger.Acceptance, 0, len(p.Previewed))
	for i, pc := range p.Previewed {
		acc := ledger.Acceptance{
			OriginHash: pc.OriginHash,
			RelayedBy:  pc.OfferedBy,
			Subject:    pc.Subject,
		}
		if i < len(hashes) {
			acc.AppliedHash = hashes[i]
		}
		accs = append(accs, acc)
	}
	return accs, nil
}

// popStash restores the stash of a finished preview.
// A pop that fails is surfaced with the stash reference:
// the user must untangle it by hand.
func (m *Machine) popStash(ctx context.Context, p *PreviewState) error {
	if !p.Stashed {
		return nil
	}
	if err := m.wt.StashPop(ctx); err != nil {
		m.log.Error("Cannot restore stashed changes; user action required",
			"stash", p.StashRef,
			"err", err,
		)
		return &GitError{Stage: "stash pop", Err: err}
	}
	return nil
}

func (m *Machine) clearPreview() {
	m.preview = nil
	m.clearJournal()
}
