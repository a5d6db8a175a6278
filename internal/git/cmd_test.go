package git

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/log/silog/silogtest"
)

// fakeExecer replays canned output and errors
// instead of forking a git process.
type fakeExecer struct {
	stdout string
	stderr string
	err    error
}

var _ execer = (*fakeExecer)(nil)

func (f *fakeExecer) Run(cmd *exec.Cmd) error {
	if cmd.Stdout != nil {
		_, _ = io.WriteString(cmd.Stdout, f.stdout)
	}
	if cmd.Stderr != nil {
		_, _ = io.WriteString(cmd.Stderr, f.stderr)
	}
	return f.err
}

func (f *fakeExecer) Output(cmd *exec.Cmd) ([]byte, error) {
	if cmd.Stderr != nil {
		_, _ = io.WriteString(cmd.Stderr, f.stderr)
	}
	return []byte(f.stdout), f.err
}

// fakeExitError stands in for a process exiting with a non-zero code.
type fakeExitError struct{ code int }

func (e *fakeExitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *fakeExitError) ExitCode() int { return e.code }

func TestGitCmdWrapExitError(t *testing.T) {
	log := silogtest.New(t)

	cmd := newGitCmd(t.Context(), log, "cherry-pick", "abc123")
	err := cmd.Run(&fakeExecer{
		stderr: "error: could not apply abc123\n",
		err:    &fakeExitError{code: 1},
	})
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "git cherry-pick", exitErr.Cmd)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "could not apply")
	assert.Contains(t, exitErr.Error(), "exit status 1")
}

func TestGitCmdOutputString(t *testing.T) {
	log := silogtest.New(t)

	out, err := newGitCmd(t.Context(), log, "rev-parse", "HEAD").
		OutputString(&fakeExecer{stdout: "deadbeef\n"})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", out)
}

func TestGitCmdWrapNonExit(t *testing.T) {
	log := silogtest.New(t)

	giveErr := errors.New("fork failed")
	err := newGitCmd(t.Context(), log, "status").
		Run(&fakeExecer{err: giveErr})
	require.Error(t, err)
	assert.ErrorContains(t, err, "git status")

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}
