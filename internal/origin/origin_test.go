package origin

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/liminality-dev/resonate/internal/git"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		hash git.Hash
		body string
		want git.Hash
	}{
		{
			name: "NoTrailer",
			hash: "b0b0b0b0",
			body: "Just a regular commit message.",
			want: "b0b0b0b0",
		},
		{
			name: "SingleTrailer",
			hash: "b0b0b0b0",
			body: "Add RESOURCES.md\n\n(cherry picked from commit aaaaaaaa)",
			want: "aaaaaaaa",
		},
		{
			name: "LastTrailerWins",
			hash: "cccccccc",
			body: "Relayed twice.\n\n" +
				"(cherry picked from commit aaaaaaaa)\n" +
				"(cherry picked from commit bbbbbbbb)",
			want: "bbbbbbbb",
		},
		{
			name: "CaseInsensitivePhrase",
			hash: "cccccccc",
			body: "(Cherry Picked From Commit abcdef12)",
			want: "abcdef12",
		},
		{
			name: "UppercaseHexNormalized",
			hash: "cccccccc",
			body: "(cherry picked from commit ABCDEF12)",
			want: "abcdef12",
		},
		{
			name: "EmptyBody",
			hash: "dddddddd",
			body: "",
			want: "dddddddd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.hash, tt.body))
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hash := git.Hash(rapid.StringMatching(`[0-9a-f]{7,40}`).Draw(t, "hash"))
		body := rapid.String().Draw(t, "body")

		once := Resolve(hash, body)
		assert.Equal(t, once, Resolve(once, body),
			"resolving twice with the same body must be stable")
	})
}

func TestResolveRelayChainStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := rapid.StringMatching(`[0-9a-f]{40}`).Draw(t, "root")
		hops := rapid.IntRange(1, 5).Draw(t, "hops")

		body := "Some change."
		for i := 0; i < hops; i++ {
			body += fmt.Sprintf("\n(cherry picked from commit %s)", root)
		}

		assert.Equal(t, git.Hash(root), Resolve("ffffffff", body))
	})
}
