// Package git drives the git binary for the curation engine.
//
// Every subprocess call the engine makes goes through here.
// Callers branch on typed results and sentinel errors;
// inspection of git's stderr text is confined to this package.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.abhg.dev/io/ioutil"
	"go.abhg.dev/log/silog"
)

type execer interface {
	Run(*exec.Cmd) error
	Output(*exec.Cmd) ([]byte, error)
}

type realExecer struct{}

var _realExec execer = realExecer{}

func (realExecer) Run(cmd *exec.Cmd) error              { return cmd.Run() }
func (realExecer) Output(cmd *exec.Cmd) ([]byte, error) { return cmd.Output() }

// ExitError is returned when a Git command exits with a non-zero code.
// It retains the captured stderr so that callers can surface it,
// but callers must not branch on its contents.
type ExitError struct {
	// Cmd is the Git command that failed, e.g. "git cherry-pick".
	Cmd string

	// Code is the exit code of the command.
	Code int

	// Stderr is the trimmed stderr output of the command.
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
	}
	return fmt.Sprintf("%s: exit status %d\nstderr:\n%s", e.Cmd, e.Code, e.Stderr)
}

// gitCmd provides a fluent API around exec.Cmd,
// unconditionally capturing stderr for error reporting
// and outcome classification.
type gitCmd struct {
	cmd    *exec.Cmd
	name   string
	stdout bytes.Buffer
	stderr bytes.Buffer
	flush  func()
}

func newGitCmd(ctx context.Context, log *silog.Logger, args ...string) *gitCmd {
	name := "git"
	if len(args) > 0 {
		name += " " + args[0]
	}

	c := &gitCmd{
		cmd:   exec.CommandContext(ctx, "git", args...),
		name:  name,
		flush: func() {},
	}

	var stderr io.Writer = &c.stderr
	if log != nil && log.Level() <= silog.LevelDebug {
		// Mirror stderr to the logger as it arrives
		// while still keeping a copy for classification.
		lw, done := ioutil.PrintfWriter(log.WithPrefix(name).Debugf, "")
		stderr = io.MultiWriter(&c.stderr, lw)
		c.flush = done
	}
	c.cmd.Stderr = stderr

	return c
}

// Dir sets the working directory for the command.
func (c *gitCmd) Dir(dir string) *gitCmd {
	c.cmd.Dir = dir
	return c
}

// Stdin supplies the command's stdin from the given reader.
func (c *gitCmd) Stdin(r io.Reader) *gitCmd {
	c.cmd.Stdin = r
	return c
}

// StdinString supplies the command's stdin from the given string.
func (c *gitCmd) StdinString(s string) *gitCmd {
	return c.Stdin(strings.NewReader(s))
}

// AppendEnv appends environment variables to the command.
func (c *gitCmd) AppendEnv(env ...string) *gitCmd {
	if len(env) == 0 {
		return c
	}

	if c.cmd.Env == nil {
		c.cmd.Env = os.Environ()
	}
	c.cmd.Env = append(c.cmd.Env, env...)
	return c
}

// Run runs the command, blocking until it completes.
// It returns an [ExitError] if the command exits with a non-zero code.
// Stdout is captured unless a writer was installed.
func (c *gitCmd) Run(exec execer) error {
	if c.cmd.Stdout == nil {
		c.cmd.Stdout = &c.stdout
	}
	return c.wrap(exec.Run(c.cmd))
}

// Output runs the command and returns its stdout.
// It returns an [ExitError] if the command exits with a non-zero code.
func (c *gitCmd) Output(exec execer) ([]byte, error) {
	out, err := exec.Output(c.cmd)
	return out, c.wrap(err)
}

// OutputString runs the command and returns its stdout as a string,
// with the trailing newline removed.
func (c *gitCmd) OutputString(exec execer) (string, error) {
	out, err := c.Output(exec)
	out, _ = bytes.CutSuffix(out, []byte{'\n'})
	return string(out), err
}

// Stderr reports the stderr captured so far, trimmed.
// Valid only after the command has finished.
func (c *gitCmd) Stderr() string {
	return strings.TrimSpace(c.stderr.String())
}

// capturedText reports everything the command wrote
// to its captured stderr and stdout streams.
// Git splits advice between the two, so classification reads both.
func (c *gitCmd) capturedText() string {
	return strings.TrimSpace(c.stderr.String() + "\n" + c.stdout.String())
}

func (c *gitCmd) wrap(err error) error {
	c.flush()
	if err == nil {
		return nil
	}

	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return &ExitError{
			Cmd:    c.name,
			Code:   coder.ExitCode(),
			Stderr: c.Stderr(),
		}
	}
	return fmt.Errorf("%s: %w", c.name, err)
}
