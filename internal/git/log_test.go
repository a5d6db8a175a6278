package git

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitsBetween(t *testing.T) {
	// Two records as 'git log --reverse' would emit them.
	give := "aaaa1111\x1fBob\x1fbob@example.com\x1f1700000000\x1fAdd RESOURCES.md\x1f" +
		"Longer explanation.\n\n(cherry picked from commit aaaaaaaa)\n\x00" +
		"\nbbbb2222\x1fCharlie\x1fcharlie@example.com\x1f1700000100\x1fFix typo\x1f\x00"

	repo := fakeRepository(t, &fakeExecer{stdout: give})

	commits, err := repo.CommitsBetween(t.Context(), "HEAD", "peer/main")
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, CommitInfo{
		Hash:    "aaaa1111",
		Author:  "Bob",
		Email:   "bob@example.com",
		Time:    time.Unix(1700000000, 0).UTC(),
		Subject: "Add RESOURCES.md",
		Body:    "Longer explanation.\n\n(cherry picked from commit aaaaaaaa)",
	}, commits[0])

	assert.Equal(t, "Fix typo", commits[1].Subject)
	assert.Empty(t, commits[1].Body)
	assert.True(t, commits[0].Time.Before(commits[1].Time))
}

func TestParseCommitRecordMalformed(t *testing.T) {
	_, err := parseCommitRecord("only\x1ffour\x1ffields\x1fhere")
	require.Error(t, err)
	assert.ErrorContains(t, err, "want 6 fields")
}

func TestHashShort(t *testing.T) {
	assert.Equal(t, "abcdef0", Hash("abcdef0123456789").Short())
	assert.Equal(t, "abc", Hash("abc").Short())
}

func TestRecentCommits(t *testing.T) {
	repo := fakeRepository(t, &fakeExecer{stdout: "cccc\nbbbb\naaaa\n"})

	hashes, err := repo.RecentCommits(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, []Hash{"cccc", "bbbb", "aaaa"}, hashes)
}
