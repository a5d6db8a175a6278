package main

import (
	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/text"
)

type unrejectCmd struct {
	Peer   string `arg:"" help:"Peer whose ledger holds the rejection."`
	Origin string `arg:"" help:"Origin hash of the rejected commit."`
}

func (*unrejectCmd) Help() string {
	return text.Dedent(`
		Withdraws an earlier rejection so the commit shows up in
		'resonate pending' again. Safe to repeat.
	`)
}

func (cmd *unrejectCmd) Run(log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, err := cfg.peerByName(cmd.Peer)
	if err != nil {
		return err
	}

	removed, err := eng.Unreject(peer.LedgerPath, cfg.Project.ID, git.Hash(cmd.Origin))
	if err != nil {
		return err
	}

	if removed {
		log.Infof("Commit %v will be offered by %v again.", cmd.Origin, peer.DisplayName)
	} else {
		log.Infof("No rejection recorded for %v; nothing to do.", cmd.Origin)
	}
	return nil
}
