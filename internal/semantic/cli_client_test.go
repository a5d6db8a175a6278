package semantic

import (
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/log/silog/silogtest"
)

func TestCLIClientGenerate(t *testing.T) {
	// "sh" exists everywhere tests run;
	// the stubbed runner keeps it from actually forking.
	client := NewCLIClient(Config{
		Command: "sh -c inference",
		Models:  Models{Standard: "standard-model"},
	}, silogtest.New(t))

	var gotArgs []string
	client.runCommand = func(cmd *exec.Cmd) error {
		gotArgs = cmd.Args
		_, err := io.WriteString(cmd.Stdout, "merged region\n")
		return err
	}

	out, err := client.Generate(t.Context(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "merge this"},
	}, Standard)
	require.NoError(t, err)
	assert.Equal(t, "merged region", out)
	assert.Contains(t, gotArgs, "--model")
	assert.Contains(t, gotArgs, "standard-model")
}

func TestCLIClientMissingBinary(t *testing.T) {
	client := NewCLIClient(Config{
		Command: "definitely-not-a-real-binary-7f3a9",
	}, silogtest.New(t))

	_, err := client.Generate(t.Context(), []Message{
		{Role: RoleUser, Content: "hi"},
	}, Standard)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFlatten(t *testing.T) {
	got := flatten([]Message{
		{Role: RoleSystem, Content: "rules here"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "earlier answer"},
	})

	assert.Equal(t,
		"rules here\n\nUser:\nquestion\n\nAssistant:\nearlier answer\n",
		got)
}
