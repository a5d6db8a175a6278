package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/peers"
	"github.com/liminality-dev/resonate/internal/text"
)

type pendingCmd struct {
	Peer string `arg:"" optional:"" help:"Show only commits offered by this peer."`
}

func (*pendingCmd) Help() string {
	return text.Dedent(`
		Lists the commits your peers offer that you have not decided on,
		grouped under the first peer seen offering each commit.
		Commits you already accepted or rejected are not shown;
		use 'resonate unreject' to bring a rejected commit back.
	`)
}

func (cmd *pendingCmd) Run(ctx context.Context, log *silog.Logger, cfg *config, eng *engine.Engine) error {
	refs := cfg.Peers
	if cmd.Peer != "" {
		peer, err := cfg.peerByName(cmd.Peer)
		if err != nil {
			return err
		}
		refs = []peers.PeerRef{peer}
	}

	groups, err := eng.ListPending(ctx, cfg.Project.ID, refs)
	if err != nil {
		return fmt.Errorf("list pending commits: %w", err)
	}

	if len(groups) == 0 {
		log.Info("Nothing pending. You are in tune with your peers.")
		return nil
	}

	for _, group := range groups {
		fmt.Printf("%s (%d commit(s)):\n", group.Peer.DisplayName, len(group.Commits))
		for _, c := range group.Commits {
			relay := ""
			if len(c.OfferedByNames) > 1 {
				relay = " [also via " + strings.Join(c.OfferedByNames[1:], ", ") + "]"
			}
			fmt.Printf("  %s  %s  (%s, %s)%s\n",
				c.OriginHash.Short(),
				c.Subject,
				c.Author,
				humanize.Time(c.Time),
				relay,
			)
		}
		fmt.Println()
	}
	return nil
}
