package semantic

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/buildkite/shellwords"
	"go.abhg.dev/log/silog"
)

// CLIClient generates text by shelling out to an inference CLI
// such as the claude binary.
type CLIClient struct {
	cfg Config
	log *silog.Logger

	runCommand func(*exec.Cmd) error // stubbed in tests
}

var _ Client = (*CLIClient)(nil)

// NewCLIClient builds a client from the given configuration.
func NewCLIClient(cfg Config, log *silog.Logger) *CLIClient {
	if log == nil {
		log = silog.Nop()
	}
	if cfg.Command == "" {
		cfg.Command = DefaultConfig().Command
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CLIClient{
		cfg:        cfg,
		log:        log,
		runCommand: (*exec.Cmd).Run,
	}
}

// Generate runs the configured CLI with the flattened conversation
// on stdin and returns its trimmed stdout.
func (c *CLIClient) Generate(ctx context.Context, msgs []Message, complexity Complexity) (string, error) {
	argv, err := shellwords.Split(c.cfg.Command)
	if err != nil {
		return "", fmt.Errorf("parse command %q: %w", c.cfg.Command, err)
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("%w: no command configured", ErrUnavailable)
	}

	if model := c.cfg.Models.For(complexity); model != "" {
		argv = append(argv, "--model", model)
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(flatten(msgs))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug("Running inference command",
		"command", argv[0],
		"complexity", complexity,
	)

	if err := c.runCommand(cmd); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		if classified := classifyStderr(stderr.String()); classified != nil {
			return "", classified
		}
		return "", fmt.Errorf("run %v: %w", argv[0], err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// flatten turns the conversation into a single prompt,
// labeling every turn after the system preamble.
func flatten(msgs []Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			b.WriteString(msg.Content)
		case RoleAssistant:
			b.WriteString("Assistant:\n" + msg.Content)
		default:
			b.WriteString("User:\n" + msg.Content)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// classifyStderr maps known CLI error text to sentinel errors.
// The CLI has no structured error output, so substring matching it is.
func classifyStderr(stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"):
		return ErrRateLimited
	case strings.Contains(lower, "not authenticated"),
		strings.Contains(lower, "authentication"),
		strings.Contains(lower, "command not found"):
		return fmt.Errorf("%w: %v", ErrUnavailable, strings.TrimSpace(stderr))
	case stderr != "":
		return fmt.Errorf("inference: %v", strings.TrimSpace(stderr))
	default:
		return nil
	}
}
