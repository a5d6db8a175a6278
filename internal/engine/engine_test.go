package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/log/silog/silogtest"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/intake"
	"github.com/liminality-dev/resonate/internal/ledger"
	"github.com/liminality-dev/resonate/internal/peers"
	"github.com/liminality-dev/resonate/internal/semantic"
	"github.com/liminality-dev/resonate/internal/workflow"
)

const _proj peers.ProjectID = "p-1"

// fakeGit scripts both halves of the Git driver for facade tests.
type fakeGit struct {
	dir    string
	branch string

	dirty   bool
	commits []git.Hash // oldest first

	remoteCommits map[string][]git.CommitInfo
	pickResults   map[git.Hash]git.PickResult
	continueQueue []git.PickResult

	unmerged []string
	files    map[string]string
}

var (
	_ GitRepository = (*fakeGit)(nil)
	_ GitWorktree   = (*fakeGit)(nil)
)

func newFakeGit(t *testing.T) *fakeGit {
	return &fakeGit{
		dir:           t.TempDir(),
		branch:        "main",
		commits:       []git.Hash{"base"},
		remoteCommits: make(map[string][]git.CommitInfo),
		pickResults:   make(map[git.Hash]git.PickResult),
		files:         make(map[string]string),
	}
}

func (f *fakeGit) RootDir() string { return f.dir }
func (f *fakeGit) GitDir() string  { return filepath.Join(f.dir, ".git") }

func (f *fakeGit) CurrentBranch(context.Context) (string, error) { return f.branch, nil }

func (f *fakeGit) CommitsBetween(_ context.Context, _, upper string) ([]git.CommitInfo, error) {
	return f.remoteCommits[upper], nil
}

func (f *fakeGit) Head(context.Context) (git.Hash, error) {
	return f.commits[len(f.commits)-1], nil
}

func (f *fakeGit) RecentCommits(_ context.Context, n int) ([]git.Hash, error) {
	var out []git.Hash
	for i := len(f.commits) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.commits[i])
	}
	return out, nil
}

func (f *fakeGit) IsDirty(context.Context) (bool, error) { return f.dirty, nil }

func (f *fakeGit) StashPush(context.Context, string) (git.Hash, error) {
	f.dirty = false
	return "stash-ref", nil
}

func (f *fakeGit) StashPop(context.Context) error {
	f.dirty = true
	return nil
}

func (f *fakeGit) CherryPick(_ context.Context, commit git.Hash) (git.PickResult, error) {
	res := f.pickResults[commit]
	if res == git.PickApplied {
		f.commits = append(f.commits, "applied-"+commit)
	}
	return res, nil
}

func (f *fakeGit) CherryPickContinue(context.Context) (git.PickResult, error) {
	res := git.PickApplied
	if len(f.continueQueue) > 0 {
		res, f.continueQueue = f.continueQueue[0], f.continueQueue[1:]
	}
	if res == git.PickApplied {
		f.commits = append(f.commits, git.Hash(fmt.Sprintf("continued-%d", len(f.commits))))
	}
	return res, nil
}

func (f *fakeGit) CherryPickSkip(context.Context) error  { return nil }
func (f *fakeGit) CherryPickAbort(context.Context) error { return nil }

func (f *fakeGit) DropCommits(_ context.Context, n int) error {
	f.commits = f.commits[:len(f.commits)-n]
	return nil
}

func (f *fakeGit) ResetHard(context.Context, string) error { return nil }

func (f *fakeGit) Add(context.Context, ...string) error { return nil }
func (f *fakeGit) AddAll(context.Context) error         { return nil }

func (f *fakeGit) CommitFromMessage(context.Context, string) error {
	f.commits = append(f.commits, git.Hash(fmt.Sprintf("manual-%d", len(f.commits))))
	return nil
}

func (f *fakeGit) UnmergedPaths(context.Context) ([]string, error) { return f.unmerged, nil }

func (f *fakeGit) ReadFile(path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("read %v: no such file", path)
	}
	return content, nil
}

func (f *fakeGit) WriteFile(path, content string) error {
	f.files[path] = content
	return nil
}

func (f *fakeGit) ShowStage(_ context.Context, _ git.IndexStage, _ string) (string, error) {
	return "", git.ErrNotExist
}

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Generate(context.Context, []semantic.Message, semantic.Complexity) (string, error) {
	return f.response, f.err
}

func at(epoch int64) time.Time { return time.Unix(epoch, 0).UTC() }

func testPeer(t *testing.T, name string) peers.PeerRef {
	return peers.PeerRef{
		ID:          peers.PeerID(name + "-id"),
		DisplayName: name,
		RemoteName:  name,
		LedgerPath:  filepath.Join(t.TempDir(), name+".json"),
	}
}

func testEngine(t *testing.T, g *fakeGit, client semantic.Client) *Engine {
	t.Helper()
	if client == nil {
		client = &fakeClient{}
	}
	return New(Params{
		Repo:     g,
		Worktree: g,
		Ledgers:  ledger.NewStore(silogtest.New(t)),
		Client:   client,
		Log:      silogtest.New(t),
	})
}

func TestRejectThenUnrejectRestoresOffer(t *testing.T) {
	g := newFakeGit(t)
	bob := testPeer(t, "bob")
	g.remoteCommits["bob/main"] = []git.CommitInfo{
		{Hash: "deadbeef", Time: at(1000), Subject: "X"},
	}

	e := testEngine(t, g, nil)

	groups, err := e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	commit := groups[0].Commits[0]

	require.NoError(t, e.RejectNow(_proj, bob, []intake.PendingCommit{commit}, "not relevant"))

	groups, err = e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	assert.Empty(t, groups, "rejected commit must be suppressed")

	removed, err := e.Unreject(bob.LedgerPath, _proj, "deadbeef")
	require.NoError(t, err)
	assert.True(t, removed)

	groups, err = e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	require.Len(t, groups, 1, "unreject must restore the offer")
}

func TestAcceptNowSuppressesFutureOffers(t *testing.T) {
	g := newFakeGit(t)
	bob := testPeer(t, "bob")
	g.remoteCommits["bob/main"] = []git.CommitInfo{
		{Hash: "11111111", Time: at(1000), Subject: "s"},
	}

	e := testEngine(t, g, nil)

	groups, err := e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, e.AcceptNow(t.Context(), _proj, bob, groups[0].Commits))

	groups, err = e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	assert.Empty(t, groups, "accepted commit must never be offered again")
}

const _conflictedFile = `intro
<<<<<<< HEAD
Beta
=======
Gamma
>>>>>>> c1
outro
`

func conflictedCommit() intake.PendingCommit {
	return intake.PendingCommit{
		CommitRef: intake.CommitRef{
			LocalHash:  "c1",
			OriginHash: "c1",
			Time:       at(1000),
			Subject:    "Add notes",
		},
		OfferedBy:     []peers.PeerID{"bob-id"},
		CherryPickRef: "c1",
	}
}

func TestConflictResolutionRoundTrip(t *testing.T) {
	g := newFakeGit(t)
	bob := testPeer(t, "bob")
	g.pickResults["c1"] = git.PickConflict
	g.unmerged = []string{"notes.md"}
	g.files["notes.md"] = _conflictedFile

	// Structural cannot merge Beta vs Gamma; the model can.
	e := testEngine(t, g, &fakeClient{response: "Beta\nGamma"})

	err := e.StartPreview(t.Context(), _proj, []intake.PendingCommit{conflictedCommit()}, &bob)
	require.Error(t, err)

	var conflictErr *workflow.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.False(t, e.IsPreviewActive(),
		"a surfaced conflict must leave no active preview")

	res := e.Resolve(t.Context(), conflictErr.Info)
	require.True(t, res.OK)
	assert.Equal(t, conflict.MethodSemantic, res.Method)
	assert.Equal(t, "intro\nBeta\nGamma\noutro\n", res.MergedContent)

	require.NoError(t, e.ApplyResolution(t.Context(), res, conflictErr.Commit, "notes.md"))

	// The resolution must be durable: recorded as accepted
	// and stored as an adaptation for the next time.
	store := ledger.NewStore(silogtest.New(t))
	accepted, err := store.AcceptedOrigins(bob.LedgerPath, _proj)
	require.NoError(t, err)
	assert.Contains(t, accepted, git.Hash("c1"))

	adapt, err := store.Adaptation(bob.LedgerPath, _proj, "c1")
	require.NoError(t, err)
	require.NotNil(t, adapt)
	assert.Equal(t, conflict.MethodSemantic, adapt.Method)
	assert.Equal(t, "intro\nBeta\nGamma\noutro\n", adapt.Files["notes.md"])
}

func TestResolvePrefersStructural(t *testing.T) {
	g := newFakeGit(t)
	raw := "<<<<<<< HEAD\n### Contributors\n- Alice\n=======\n### Contributors\n- Bob\n>>>>>>> c1\n"

	e := testEngine(t, g, &fakeClient{err: semantic.ErrUnavailable})

	info := &conflict.Info{
		Path:    "README.md",
		Raw:     raw,
		Regions: conflict.ParseMarkers(raw),
	}

	res := e.Resolve(t.Context(), info)
	require.True(t, res.OK, "structural must succeed without the model")
	assert.Equal(t, conflict.MethodStructural, res.Method)
	assert.Equal(t, "### Contributors\n- Alice\n- Bob\n", res.MergedContent)
}

func TestManualResolution(t *testing.T) {
	g := newFakeGit(t)
	e := testEngine(t, g, nil)

	res := e.ManualResolution("final contents\n")
	assert.True(t, res.OK)
	assert.Equal(t, conflict.MethodManual, res.Method)
}

func TestAbortResolutionClearsPendingConflict(t *testing.T) {
	g := newFakeGit(t)
	bob := testPeer(t, "bob")
	g.pickResults["c1"] = git.PickConflict
	g.unmerged = []string{"notes.md"}
	g.files["notes.md"] = _conflictedFile

	e := testEngine(t, g, nil)

	err := e.StartPreview(t.Context(), _proj, []intake.PendingCommit{conflictedCommit()}, &bob)
	var conflictErr *workflow.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	e.AbortResolution(t.Context())
	assert.Nil(t, e.pending)
	assert.False(t, e.IsPreviewActive())
}

func TestPreviewLifecycleThroughFacade(t *testing.T) {
	g := newFakeGit(t)
	bob := testPeer(t, "bob")
	g.dirty = true
	g.remoteCommits["bob/main"] = []git.CommitInfo{
		{Hash: "11111111", Time: at(1000), Subject: "s"},
	}

	e := testEngine(t, g, nil)

	groups, err := e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, e.StartPreview(t.Context(), _proj, groups[0].Commits, &bob))
	assert.True(t, e.IsPreviewActive())

	require.NoError(t, e.CommitPreview(t.Context(), bob.LedgerPath))
	assert.False(t, e.IsPreviewActive())
	assert.True(t, g.dirty, "stash must be restored after commit")

	groups, err = e.ListPending(t.Context(), _proj, []peers.PeerRef{bob})
	require.NoError(t, err)
	assert.Empty(t, groups)
}
