// resonate curates the commits that peers of a shared project offer:
// preview them, accept them, reject them, and let past decisions
// keep already-answered offers out of sight.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/engine"
)

func main() {
	// Local overrides for ad-hoc runs; absence is fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := silog.New(os.Stderr, nil)

	var cmd mainCmd
	kctx := kong.Parse(&cmd,
		kong.Name("resonate"),
		kong.Description("Curate commits offered by peers of a shared project."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(logger),
	)

	kctx.FatalIfErrorf(kctx.Run())
}

type mainCmd struct {
	Config  string `short:"c" env:"RESONATE_CONFIG" default:"resonate.yaml" help:"Path to the project configuration file."`
	Dir     string `short:"C" placeholder:"DIR" help:"Run as if started in DIR."`
	Verbose bool   `short:"v" env:"RESONATE_VERBOSE" help:"Enable verbose output."`

	Pending  pendingCmd  `cmd:"" help:"List commits offered by peers."`
	Preview  previewCmd  `cmd:"" help:"Preview, keep, or discard peer commits reversibly."`
	Accept   acceptCmd   `cmd:"" help:"Apply peer commits and record the acceptance."`
	Reject   rejectCmd   `cmd:"" help:"Decline peer commits without touching the tree."`
	Unreject unrejectCmd `cmd:"" help:"Withdraw an earlier rejection."`
	Resolve  resolveCmd  `cmd:"" help:"Resolve or abort a pending merge conflict."`
	Version  versionCmd  `cmd:"" help:"Print version information."`
}

func (cmd *mainCmd) AfterApply(kctx *kong.Context, ctx context.Context, logger *silog.Logger) error {
	if cmd.Verbose {
		logger.SetLevel(silog.LevelDebug)
	}

	if cmd.Dir != "" {
		if err := os.Chdir(cmd.Dir); err != nil {
			return fmt.Errorf("change directory: %w", err)
		}
	}

	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		return err
	}

	eng, err := engine.Open(ctx, engine.OpenOptions{
		Dir:      cfg.Project.Path,
		Semantic: cfg.LLM,
		Log:      logger,
	})
	if err != nil {
		return err
	}

	kctx.Bind(cfg)
	kctx.Bind(eng)
	return nil
}
