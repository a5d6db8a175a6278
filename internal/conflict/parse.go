// Package conflict reads Git merge-conflict markers out of files
// and resolves single-region conflicts structurally.
package conflict

import (
	"strings"

	"go.abhg.dev/container/ring"
)

const (
	_markerOurs   = "<<<<<<<"
	_markerSplit  = "======="
	_markerTheirs = ">>>>>>>"

	// contextLines is how many surrounding lines
	// are kept on each side of a region.
	contextLines = 3
)

// Region is one conflicted region of a file.
type Region struct {
	// StartLine is the 1-indexed line number of the "<<<<<<<" marker.
	StartLine int

	// Ours holds the lines between "<<<<<<<" and "=======".
	Ours []string

	// Theirs holds the lines between "=======" and ">>>>>>>".
	Theirs []string

	// ContextBefore and ContextAfter hold up to three
	// non-conflict lines on either side of the region.
	ContextBefore []string
	ContextAfter  []string
}

// ParseMarkers extracts the conflict regions of the given file contents.
//
// Nested conflict markers are not supported;
// their parse is undefined.
func ParseMarkers(content string) []Region {
	lines := strings.Split(content, "\n")

	var (
		parsed  []*Region
		current *Region // region being collected, nil outside markers
		closed  *Region // last closed region, still filling trailing context
		inOurs  bool

		// recent keeps the trailing window of non-conflict lines
		// to serve as the next region's leading context.
		recent    ring.Q[string]
		recentLen int
	)

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, _markerOurs):
			current = &Region{StartLine: i + 1}
			parsed = append(parsed, current)
			inOurs = true
			closed = nil

			for !recent.Empty() {
				current.ContextBefore = append(current.ContextBefore, recent.Pop())
			}
			recentLen = 0

		case current != nil && strings.HasPrefix(line, _markerSplit):
			inOurs = false

		case current != nil && strings.HasPrefix(line, _markerTheirs):
			closed = current
			current = nil

		case current != nil:
			if inOurs {
				current.Ours = append(current.Ours, line)
			} else {
				current.Theirs = append(current.Theirs, line)
			}

		default:
			if closed != nil && len(closed.ContextAfter) < contextLines {
				closed.ContextAfter = append(closed.ContextAfter, line)
			}

			recent.Push(line)
			if recentLen++; recentLen > contextLines {
				recent.Pop()
				recentLen--
			}
		}
	}

	regions := make([]Region, len(parsed))
	for i, r := range parsed {
		regions[i] = *r
	}
	return regions
}
