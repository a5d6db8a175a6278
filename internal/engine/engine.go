// Package engine is the public face of the commit-curation core.
//
// A host application talks to one [Engine] per project working tree.
// The engine owns its collaborators outright: intake, the workflow
// state machine, the resolver chain, and the ledger store are
// constructed with it and never shared behind process-wide state.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/intake"
	"github.com/liminality-dev/resonate/internal/ledger"
	"github.com/liminality-dev/resonate/internal/peers"
	"github.com/liminality-dev/resonate/internal/semantic"
	"github.com/liminality-dev/resonate/internal/workflow"
)

// GitRepository is the repository surface the engine needs.
type GitRepository interface {
	intake.GitRepository
	workflow.GitRepository
}

var _ GitRepository = (*git.Repository)(nil)

// GitWorktree is the worktree surface the engine needs.
type GitWorktree interface {
	intake.GitWorktree
	workflow.GitWorktree
}

var _ GitWorktree = (*git.Worktree)(nil)

// LedgerStore is the ledger surface the engine needs.
type LedgerStore interface {
	intake.LedgerSource
	workflow.LedgerStore

	Unreject(path string, project peers.ProjectID, origin git.Hash) (bool, error)
}

var _ LedgerStore = (*ledger.Store)(nil)

// Params carries the engine's collaborators.
type Params struct {
	Repo     GitRepository   // required
	Worktree GitWorktree     // required
	Ledgers  LedgerStore     // required
	Client   semantic.Client // required
	Log      *silog.Logger   // optional
}

// Engine curates peer commits for one project working tree.
//
// The engine is single-owner over the working tree while a preview or
// a pending conflict is active, and is not safe for concurrent use.
type Engine struct {
	repo     GitRepository
	intake   *intake.Service
	machine  *workflow.Machine
	semantic *semantic.Resolver
	ledgers  LedgerStore
	log      *silog.Logger

	// pending is the conflict handed to the caller and not yet
	// applied or aborted, if any.
	pending *pendingConflict
}

type pendingConflict struct {
	project peers.ProjectID
	peer    *peers.PeerRef
	commit  intake.PendingCommit
}

// New builds an engine from its collaborators.
func New(p Params) *Engine {
	log := p.Log
	if log == nil {
		log = silog.Nop()
	}

	return &Engine{
		repo:     p.Repo,
		intake:   intake.NewService(p.Repo, p.Worktree, p.Ledgers, log),
		machine:  workflow.NewMachine(p.Repo, p.Worktree, p.Ledgers, log),
		semantic: semantic.NewResolver(p.Client, log),
		ledgers:  p.Ledgers,
		log:      log,
	}
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Dir is the project working tree. Required.
	Dir string

	// Semantic configures the inference client.
	Semantic semantic.Config

	// Log is the logger to use.
	Log *silog.Logger
}

// Open builds an engine over the real Git repository at the given
// directory, a file-backed ledger store, and a CLI-backed
// inference client.
func Open(ctx context.Context, opts OpenOptions) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = silog.Nop()
	}

	repo, err := git.Open(ctx, opts.Dir, git.OpenOptions{Log: log})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return New(Params{
		Repo:     repo,
		Worktree: repo.Worktree(),
		Ledgers:  ledger.NewStore(log),
		Client:   semantic.NewCLIClient(opts.Semantic, log),
		Log:      log,
	}), nil
}

// ListPending enumerates the commits the given peers offer
// for the project, already deduplicated and filtered by the ledgers.
func (e *Engine) ListPending(
	ctx context.Context,
	project peers.ProjectID,
	refs []peers.PeerRef,
) ([]intake.PeerCommitGroup, error) {
	return e.intake.ListPending(ctx, project, refs)
}

// StartPreview applies the commits reversibly to the working tree.
//
// If peer is non-nil, its stored adaptations are replayed on conflicts
// before the conflict is surfaced.
// A surfaced conflict is returned as a [*workflow.ConflictError];
// the caller must follow up with ApplyResolution or AbortResolution.
func (e *Engine) StartPreview(
	ctx context.Context,
	project peers.ProjectID,
	commits []intake.PendingCommit,
	peer *peers.PeerRef,
) error {
	err := e.machine.StartPreview(ctx, project, commits, peer)
	e.trackConflict(project, peer, err)
	return err
}

// CommitPreview accepts the active preview,
// recording acceptances in the ledger at ledgerPath.
func (e *Engine) CommitPreview(ctx context.Context, ledgerPath string) error {
	return e.machine.CommitPreview(ctx, ledgerPath)
}

// RejectPreview discards the active preview,
// recording rejections in the ledger at ledgerPath.
func (e *Engine) RejectPreview(ctx context.Context, ledgerPath string) error {
	return e.machine.RejectPreview(ctx, ledgerPath)
}

// CancelPreview discards the active preview without recording anything.
func (e *Engine) CancelPreview(ctx context.Context) error {
	return e.machine.CancelPreview(ctx)
}

// IsPreviewActive reports whether a preview is active.
func (e *Engine) IsPreviewActive() bool {
	return e.machine.IsPreviewActive()
}

// ForceCleanupPreview unconditionally forgets the active preview
// without touching the working tree. For crash recovery.
func (e *Engine) ForceCleanupPreview() {
	e.machine.ForceCleanup()
	e.pending = nil
}

// StalePreview reports a preview journaled by an earlier process,
// or nil if there is none.
func (e *Engine) StalePreview() *workflow.PreviewState {
	return e.machine.StalePreview()
}

// ResumePreview adopts a journaled preview as the active one.
func (e *Engine) ResumePreview() error {
	return e.machine.ResumePreview()
}

// AcceptNow applies and records the commits in one step.
// Conflicts behave as in StartPreview, with the peer's stored
// adaptations replayed first.
func (e *Engine) AcceptNow(
	ctx context.Context,
	project peers.ProjectID,
	peer peers.PeerRef,
	commits []intake.PendingCommit,
) error {
	err := e.machine.AcceptNow(ctx, project, peer, commits)
	e.trackConflict(project, &peer, err)
	return err
}

// RejectNow records rejections for the commits without touching Git.
func (e *Engine) RejectNow(
	project peers.ProjectID,
	peer peers.PeerRef,
	commits []intake.PendingCommit,
	reason string,
) error {
	return e.machine.RejectNow(project, peer, commits, reason)
}

// Unreject removes a recorded rejection so the commit
// is offered again. It reports whether anything was removed.
func (e *Engine) Unreject(ledgerPath string, project peers.ProjectID, origin git.Hash) (bool, error) {
	return e.ledgers.Unreject(ledgerPath, project, origin)
}

// PendingConflict reads the first conflicted file of the working tree,
// or nil if nothing is conflicted.
// Useful when the process that surfaced the conflict is gone.
func (e *Engine) PendingConflict(ctx context.Context) *conflict.Info {
	return e.machine.FirstConflict(ctx)
}

// Resolve runs the resolver chain over a surfaced conflict:
// structural first, then semantic with any refinement instructions.
// The returned resolution may still be not-OK;
// the caller can retry with refinements or fall back to
// ManualResolution.
func (e *Engine) Resolve(ctx context.Context, info *conflict.Info, refinements ...string) conflict.Resolution {
	if res := conflict.TryStructural(info); res.OK {
		return res
	}
	return e.semantic.Resolve(ctx, info, refinements...)
}

// ManualResolution wraps caller-supplied full file contents
// as a resolution of last resort.
func (e *Engine) ManualResolution(content string) conflict.Resolution {
	return conflict.Resolution{
		OK:            true,
		MergedContent: content,
		Method:        conflict.MethodManual,
		Explanation:   "resolved by hand",
	}
}

// ApplyResolution completes the pending conflicted cherry-pick
// with the given resolution.
//
// On success, if the conflict's peer is known, the acceptance is
// recorded and the resolution is stored as an adaptation so the
// same conflict never needs solving twice.
func (e *Engine) ApplyResolution(
	ctx context.Context,
	res conflict.Resolution,
	commit intake.PendingCommit,
	filePath string,
) error {
	if err := e.machine.ApplyResolution(ctx, res, commit, filePath); err != nil {
		return err
	}

	pending := e.pending
	e.pending = nil

	if pending == nil || pending.peer == nil {
		e.log.Debug("No peer known for resolved conflict; skipping ledger writes",
			"origin", commit.OriginHash,
		)
		return nil
	}

	if err := e.ledgers.PutAdaptation(pending.peer.LedgerPath, pending.project, &ledger.Adaptation{
		OriginHash: commit.OriginHash,
		Files:      map[string]string{filePath: res.MergedContent},
		Method:     res.Method,
	}); err != nil {
		e.log.Warn("Cannot store adaptation", "origin", commit.OriginHash, "err", err)
	}

	head, err := e.repo.Head(ctx)
	if err != nil {
		return fmt.Errorf("read new HEAD: %w", err)
	}

	err = e.ledgers.RecordAcceptances(pending.peer.LedgerPath, pending.project, []ledger.Acceptance{{
		OriginHash:  commit.OriginHash,
		AppliedHash: head,
		RelayedBy:   commit.OfferedBy,
		Subject:     commit.Subject,
	}})
	if err != nil {
		return fmt.Errorf("record acceptance: %w", err)
	}
	return nil
}

// AbortResolution abandons the pending conflicted cherry-pick.
// Best-effort; always leaves the engine usable.
func (e *Engine) AbortResolution(ctx context.Context) {
	e.machine.AbortResolution(ctx)
	e.pending = nil
}

// trackConflict remembers the context of a surfaced conflict
// so ApplyResolution can write the right ledger afterwards.
func (e *Engine) trackConflict(project peers.ProjectID, peer *peers.PeerRef, err error) {
	var conflictErr *workflow.ConflictError
	if !errors.As(err, &conflictErr) {
		return
	}
	e.pending = &pendingConflict{
		project: project,
		peer:    peer,
		commit:  conflictErr.Commit,
	}
}
