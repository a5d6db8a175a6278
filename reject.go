package main

import (
	"context"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/text"
)

type rejectCmd struct {
	Peer    string   `arg:"" help:"Peer offering the commits."`
	Commits []string `arg:"" optional:"" help:"Origin hashes to reject. Defaults to everything the peer offers."`
	Reason  string   `short:"r" optional:"" help:"Why the commits are declined."`
}

func (*rejectCmd) Help() string {
	return text.Dedent(`
		Declines the chosen commits without touching your working tree.
		The decision is remembered in the peer's ledger, so the same
		commits are never offered by that peer again.
		'resonate unreject' reverses the decision.
	`)
}

func (cmd *rejectCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, commits, err := selectCommits(ctx, cfg, eng, cmd.Peer, cmd.Commits)
	if err != nil {
		return err
	}

	if err := eng.RejectNow(cfg.Project.ID, peer, commits, cmd.Reason); err != nil {
		return err
	}

	log.Infof("Rejected %d commit(s) from %v.", len(commits), peer.DisplayName)
	return nil
}
