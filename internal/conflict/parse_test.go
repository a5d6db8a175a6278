package conflict

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liminality-dev/resonate/internal/git"
)

const _conflicted = `# Project
intro line one
intro line two
intro line three
intro line four
<<<<<<< HEAD
### Contributors
- Alice
=======
### Contributors
- Bob
>>>>>>> b0b0b0b0 (Add RESOURCES.md)
outro line one
outro line two
outro line three
outro line four
`

func TestParseMarkersSingleRegion(t *testing.T) {
	regions := ParseMarkers(_conflicted)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 6, r.StartLine)
	assert.Equal(t, []string{"### Contributors", "- Alice"}, r.Ours)
	assert.Equal(t, []string{"### Contributors", "- Bob"}, r.Theirs)
	assert.Equal(t,
		[]string{"intro line two", "intro line three", "intro line four"},
		r.ContextBefore, "keeps only the closest three lines")
	assert.Equal(t,
		[]string{"outro line one", "outro line two", "outro line three"},
		r.ContextAfter)
}

func TestParseMarkersNoConflict(t *testing.T) {
	assert.Empty(t, ParseMarkers("just\nplain\ntext\n"))
}

func TestParseMarkersTwoRegions(t *testing.T) {
	give := strings.Join([]string{
		"a",
		"<<<<<<< HEAD",
		"one",
		"=======",
		"uno",
		">>>>>>> x",
		"between",
		"<<<<<<< HEAD",
		"two",
		"=======",
		"dos",
		">>>>>>> x",
		"after",
	}, "\n")

	regions := ParseMarkers(give)
	require.Len(t, regions, 2)

	assert.Equal(t, []string{"one"}, regions[0].Ours)
	assert.Equal(t, []string{"between"}, regions[0].ContextAfter)
	assert.Equal(t, []string{"between"}, regions[1].ContextBefore)
	assert.Equal(t, []string{"dos"}, regions[1].Theirs)
	assert.Equal(t, []string{"after"}, regions[1].ContextAfter)
}

type fakeStageWorktree struct {
	files  map[string]string
	stages map[git.IndexStage]string
}

func (f *fakeStageWorktree) ReadFile(path string) (string, error) {
	return f.files[path], nil
}

func (f *fakeStageWorktree) ShowStage(_ context.Context, stage git.IndexStage, _ string) (string, error) {
	content, ok := f.stages[stage]
	if !ok {
		return "", git.ErrNotExist
	}
	return content, nil
}

func TestReadInfo(t *testing.T) {
	wt := &fakeStageWorktree{
		files: map[string]string{"README.md": _conflicted},
		stages: map[git.IndexStage]string{
			git.StageOurs:   "ours full\n",
			git.StageTheirs: "theirs full\n",
			// no base: file added on both sides
		},
	}

	info, err := ReadInfo(t.Context(), wt, "README.md")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "README.md", info.Path)
	assert.Nil(t, info.Base)
	require.NotNil(t, info.Ours)
	assert.Equal(t, "ours full\n", *info.Ours)
	require.NotNil(t, info.Theirs)
	assert.Equal(t, "theirs full\n", *info.Theirs)
	require.Len(t, info.Regions, 1)
}

func TestReadInfoNoMarkers(t *testing.T) {
	wt := &fakeStageWorktree{
		files: map[string]string{"README.md": "clean file\n"},
	}

	info, err := ReadInfo(t.Context(), wt, "README.md")
	require.NoError(t, err)
	assert.Nil(t, info)
}
