package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/engine"
	"github.com/liminality-dev/resonate/internal/intake"
	"github.com/liminality-dev/resonate/internal/text"
)

type resolveCmd struct {
	Abort   bool     `help:"Abandon the pending conflict instead of resolving it."`
	Manual  string   `placeholder:"FILE" help:"Use FILE as the fully resolved contents."`
	Refine  []string `short:"R" help:"Extra instruction for the merge; may be repeated."`
	Subject string   `help:"Subject of the conflicting commit, used for the commit message."`
}

func (*resolveCmd) Help() string {
	return text.Dedent(`
		Finishes a cherry-pick that stopped on a merge conflict.

		The conflict is merged structurally when the two sides share
		an anchor line, and through the configured inference command
		otherwise. Pass --refine to steer a re-run, or --manual with
		a file holding the final contents to take over entirely.
	`)
}

func (cmd *resolveCmd) Run(ctx context.Context, log *silog.Logger, eng *engine.Engine) error {
	if cmd.Abort {
		eng.AbortResolution(ctx)
		log.Info("Conflict abandoned; the cherry-pick was aborted.")
		return nil
	}

	info := eng.PendingConflict(ctx)
	if info == nil {
		return errors.New("no conflict is pending")
	}

	var res conflict.Resolution
	switch {
	case cmd.Manual != "":
		bs, err := os.ReadFile(cmd.Manual)
		if err != nil {
			return fmt.Errorf("read manual resolution: %w", err)
		}
		res = eng.ManualResolution(string(bs))

	default:
		res = eng.Resolve(ctx, info, cmd.Refine...)
		if !res.OK {
			if res.Err != nil {
				return fmt.Errorf("cannot resolve %v: %w", info.Path, res.Err)
			}
			return fmt.Errorf("cannot resolve %v: %v", info.Path, res.Explanation)
		}
	}

	commit := intake.PendingCommit{
		CommitRef: intake.CommitRef{Subject: cmd.Subject},
	}
	if commit.Subject == "" {
		commit.Subject = "Merge peer changes"
	}

	if err := eng.ApplyResolution(ctx, res, commit, info.Path); err != nil {
		return err
	}

	log.Infof("Resolved %v (%v).", info.Path, res.Method)
	return nil
}
