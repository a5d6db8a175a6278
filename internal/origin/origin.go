// Package origin computes the content-addressed identity of a commit
// across relay chains.
//
// When a commit is cherry-picked with 'git cherry-pick -x',
// the new commit's message carries a trailer naming the source commit.
// Following that trailer gives every relay of a change the same identity,
// no matter how many hops it travelled.
package origin

import (
	"regexp"
	"strings"

	"github.com/liminality-dev/resonate/internal/git"
)

var _trailerRe = regexp.MustCompile(`(?i)\(cherry picked from commit ([0-9a-f]+)\)`)

// Resolve reports the origin hash of a commit given its hash and
// message body.
//
// If the body names one or more source commits via cherry-pick trailers,
// the last one wins: it is the deepest relay hop recorded in the message.
// Otherwise the commit is its own origin.
func Resolve(hash git.Hash, body string) git.Hash {
	matches := _trailerRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return hash
	}
	// Git writes the trailer in lowercase;
	// normalize anyway so origin comparisons stay stable.
	return git.Hash(strings.ToLower(matches[len(matches)-1][1]))
}
