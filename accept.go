package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/intake"
	"github.com/liminality-dev/resonate/internal/peers"
	"github.com/liminality-dev/resonate/internal/text"
	"github.com/liminality-dev/resonate/internal/workflow"
)

type acceptCmd struct {
	Peer    string   `arg:"" help:"Peer offering the commits."`
	Commits []string `arg:"" optional:"" help:"Origin hashes to accept. Defaults to everything the peer offers."`
}

func (*acceptCmd) Help() string {
	return text.Dedent(`
		Cherry-picks the chosen commits onto your branch and records
		the acceptance in the peer's ledger, skipping the preview.
		Conflicts resolved once before are replayed automatically
		from the stored adaptation.
	`)
}

func (cmd *acceptCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	peer, commits, err := selectCommits(ctx, cfg, eng, cmd.Peer, cmd.Commits)
	if err != nil {
		return err
	}

	err = eng.AcceptNow(ctx, cfg.Project.ID, peer, commits)
	if err != nil {
		var conflictErr *workflow.ConflictError
		if errors.As(err, &conflictErr) {
			reportConflict(log, conflictErr)
			return errors.New("accept stopped on a conflict")
		}
		return err
	}

	log.Infof("Accepted %d commit(s) from %v.", len(commits), peer.DisplayName)
	return nil
}

// selectCommits resolves a peer name and an optional origin-hash
// selection to the peer's currently pending commits.
func selectCommits(
	ctx context.Context,
	cfg *config,
	eng *engine.Engine,
	peerName string,
	origins []string,
) (peers.PeerRef, []intake.PendingCommit, error) {
	peer, err := cfg.peerByName(peerName)
	if err != nil {
		return peers.PeerRef{}, nil, err
	}

	groups, err := eng.ListPending(ctx, cfg.Project.ID, []peers.PeerRef{peer})
	if err != nil {
		return peers.PeerRef{}, nil, fmt.Errorf("list pending commits: %w", err)
	}
	if len(groups) == 0 {
		return peers.PeerRef{}, nil, fmt.Errorf("%v offers nothing right now", peer.DisplayName)
	}
	offered := groups[0].Commits

	if len(origins) == 0 {
		return peer, offered, nil
	}

	var picked []intake.PendingCommit
	for _, want := range origins {
		idx := slices.IndexFunc(offered, func(c intake.PendingCommit) bool {
			return c.OriginHash.String() == want ||
				c.OriginHash.Short() == want ||
				c.LocalHash.String() == want
		})
		if idx < 0 {
			return peers.PeerRef{}, nil, fmt.Errorf("%v does not offer commit %v", peer.DisplayName, want)
		}
		picked = append(picked, offered[idx])
	}
	return peer, picked, nil
}
