package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/log/silog/silogtest"

	"github.com/liminality-dev/resonate/internal/conflict"
)

type fakeClient struct {
	response   string
	err        error
	gotMsgs    []Message
	complexity Complexity
}

func (f *fakeClient) Generate(_ context.Context, msgs []Message, c Complexity) (string, error) {
	f.gotMsgs = msgs
	f.complexity = c
	return f.response, f.err
}

const _raw = `intro
<<<<<<< HEAD
Beta
=======
Gamma
>>>>>>> incoming
outro
`

func testInfo() *conflict.Info {
	return &conflict.Info{
		Path:    "notes.md",
		Raw:     _raw,
		Regions: conflict.ParseMarkers(_raw),
	}
}

func TestResolveMergesRegion(t *testing.T) {
	client := &fakeClient{response: "Beta\nGamma"}
	r := NewResolver(client, silogtest.New(t))

	res := r.Resolve(t.Context(), testInfo())
	require.True(t, res.OK)
	assert.Equal(t, conflict.MethodSemantic, res.Method)
	assert.Equal(t, "intro\nBeta\nGamma\noutro\n", res.MergedContent)
	assert.Equal(t, Standard, client.complexity)

	require.Len(t, client.gotMsgs, 2)
	assert.Equal(t, RoleSystem, client.gotMsgs[0].Role)
	assert.Contains(t, client.gotMsgs[1].Content, "VERSION A (current):\nBeta")
	assert.Contains(t, client.gotMsgs[1].Content, "VERSION B (incoming):\nGamma")
	assert.Contains(t, client.gotMsgs[1].Content, "File: notes.md")
}

func TestResolveStripsFences(t *testing.T) {
	client := &fakeClient{response: "```markdown\nBeta\nGamma\n```"}
	r := NewResolver(client, silogtest.New(t))

	res := r.Resolve(t.Context(), testInfo())
	require.True(t, res.OK)
	assert.Equal(t, "intro\nBeta\nGamma\noutro\n", res.MergedContent)
}

func TestResolveRefinementsUpgradeComplexity(t *testing.T) {
	client := &fakeClient{response: "Beta\nGamma"}
	r := NewResolver(client, silogtest.New(t))

	res := r.Resolve(t.Context(), testInfo(),
		"Keep both lines.",
		"Do not reorder anything.",
	)
	require.True(t, res.OK)
	assert.Equal(t, Complex, client.complexity)
	assert.Contains(t, client.gotMsgs[1].Content, "1. Keep both lines.")
	assert.Contains(t, client.gotMsgs[1].Content, "2. Do not reorder anything.")
}

func TestResolveEmptyResponse(t *testing.T) {
	client := &fakeClient{response: "   \n"}
	r := NewResolver(client, silogtest.New(t))

	res := r.Resolve(t.Context(), testInfo())
	assert.False(t, res.OK)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.Explanation)
}

func TestResolveClientError(t *testing.T) {
	client := &fakeClient{err: ErrRateLimited}
	r := NewResolver(client, silogtest.New(t))

	res := r.Resolve(t.Context(), testInfo())
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrRateLimited)
}

func TestResolveNoRegions(t *testing.T) {
	r := NewResolver(&fakeClient{}, silogtest.New(t))

	res := r.Resolve(t.Context(), &conflict.Info{Path: "x", Raw: "clean"})
	assert.False(t, res.OK)
}

func TestStripFences(t *testing.T) {
	tests := []struct{ name, give, want string }{
		{"NoFence", "plain text", "plain text"},
		{"Fence", "```\nbody\n```", "body"},
		{"FenceWithLang", "```markdown\nbody\n```", "body"},
		{"UnclosedFence", "```\nbody", "```\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.give))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("a {x} b {missing} c {y}", map[string]string{
		"x": "1",
		"y": "2",
	})
	assert.Equal(t, "a 1 b {missing} c 2", got)
}

func TestConfigModelsFor(t *testing.T) {
	m := Models{Trivial: "t", Standard: "s", Complex: "c"}
	assert.Equal(t, "t", m.For(Trivial))
	assert.Equal(t, "s", m.For(Standard))
	assert.Equal(t, "c", m.For(Complex))
}

func TestClassifyStderr(t *testing.T) {
	assert.ErrorIs(t, classifyStderr("Rate limit reached, retry later"), ErrRateLimited)
	assert.ErrorIs(t, classifyStderr("not authenticated; run auth first"), ErrUnavailable)
	assert.ErrorContains(t, classifyStderr("boom"), "boom")
	assert.NoError(t, classifyStderr(""))

	var generic error = classifyStderr("boom")
	assert.False(t, errors.Is(generic, ErrRateLimited))
}
