package main

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/text"
	"github.com/liminality-dev/resonate/internal/workflow"
)

type previewCmd struct {
	Start  previewStartCmd  `cmd:"" help:"Apply a peer's commits reversibly."`
	Commit previewCommitCmd `cmd:"" help:"Keep the previewed commits and record the acceptance."`
	Reject previewRejectCmd `cmd:"" help:"Discard the previewed commits and record the rejection."`
	Cancel previewCancelCmd `cmd:"" help:"Discard the previewed commits without recording anything."`
}

type previewStartCmd struct {
	Peer    string   `arg:"" help:"Peer whose commits to preview."`
	Commits []string `arg:"" optional:"" help:"Origin hashes to preview. Defaults to everything the peer offers."`
}

func (*previewStartCmd) Help() string {
	return text.Dedent(`
		Applies the chosen commits to your working tree so you can
		inspect the result. Uncommitted changes are stashed first
		and restored when the preview ends.

		Follow up with 'resonate preview commit', 'preview reject',
		or 'preview cancel'. If a commit conflicts, the preview stops
		and 'resonate resolve' takes over.
	`)
}

func (cmd *previewStartCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, commits, err := selectCommits(ctx, cfg, eng, cmd.Peer, cmd.Commits)
	if err != nil {
		return err
	}

	err = eng.StartPreview(ctx, cfg.Project.ID, commits, &peer)
	if err != nil {
		var conflictErr *workflow.ConflictError
		if errors.As(err, &conflictErr) {
			reportConflict(log, conflictErr)
			return errors.New("preview stopped on a conflict")
		}
		return err
	}

	log.Infof("Previewing %d commit(s) from %v. Inspect the tree, then commit, reject, or cancel the preview.",
		len(commits), peer.DisplayName)
	return nil
}

func reportConflict(log *silog.Logger, err *workflow.ConflictError) {
	log.Error("Commit conflicts with your tree",
		"commit", err.Commit.LocalHash,
		"subject", err.Commit.Subject,
	)
	if err.Info != nil {
		log.Errorf("Conflicted file: %v (%d region(s))", err.Info.Path, len(err.Info.Regions))
	}
	log.Error("Run 'resonate resolve' to merge it, or 'resonate resolve --abort' to walk away.")
}

type previewCommitCmd struct {
	Peer string `arg:"" help:"Peer whose ledger records the acceptance."`
}

func (cmd *previewCommitCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, err := cfg.peerByName(cmd.Peer)
	if err != nil {
		return err
	}
	if err := resumeIfIdle(eng); err != nil {
		return err
	}

	if err := eng.CommitPreview(ctx, peer.LedgerPath); err != nil {
		return err
	}
	log.Info("Preview kept. The commits are yours now.")
	return nil
}

type previewRejectCmd struct {
	Peer string `arg:"" help:"Peer whose ledger records the rejection."`
}

func (cmd *previewRejectCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, err := cfg.peerByName(cmd.Peer)
	if err != nil {
		return err
	}
	if err := resumeIfIdle(eng); err != nil {
		return err
	}

	if err := eng.RejectPreview(ctx, peer.LedgerPath); err != nil {
		return err
	}
	log.Info("Preview discarded and remembered; these commits will not be offered again.")
	return nil
}

type previewCancelCmd struct{}

func (cmd *previewCancelCmd) Run(ctx context.Context, log *silog.Logger, eng *engine.Engine) error {
	if err := resumeIfIdle(eng); err != nil {
		return err
	}

	if err := eng.CancelPreview(ctx); err != nil {
		return err
	}
	log.Info("Preview discarded. Your tree is back where it was.")
	return nil
}

// resumeIfIdle adopts a journaled preview from an earlier run
// when this process has none of its own.
func resumeIfIdle(eng *engine.Engine) error {
	if eng.IsPreviewActive() {
		return nil
	}
	if err := eng.ResumePreview(); err != nil {
		return fmt.Errorf("no active preview: %w", err)
	}
	return nil
}
