package conflict

import "strings"

// TryStructural attempts to merge a conflict without understanding it,
// using line-anchor and subset heuristics.
//
// Only single-region conflicts are attempted.
// The heuristics are tried in order:
//
//  1. Leading anchor: both sides start with the same non-blank line;
//     the divergent tails are concatenated under it.
//  2. Trailing anchor: both sides end with the same non-blank line.
//  3. Subset: the non-blank lines of one side are a strict subset
//     of the other's; the superset wins verbatim.
func TryStructural(info *Info) Resolution {
	if len(info.Regions) != 1 {
		return Failed(MethodStructural, "too complex for structural resolution")
	}
	region := info.Regions[0]

	merged, ok := mergeRegion(region.Ours, region.Theirs)
	if !ok {
		return Failed(MethodStructural, "no structural anchor between the two sides")
	}

	return Resolution{
		OK:            true,
		MergedContent: SpliceRegion(info.Raw, merged),
		Method:        MethodStructural,
		Explanation:   "merged on a structural anchor",
	}
}

func mergeRegion(ours, theirs []string) ([]string, bool) {
	// Leading anchor.
	if len(ours) > 0 && len(theirs) > 0 &&
		ours[0] == theirs[0] && strings.TrimSpace(ours[0]) != "" {
		merged := []string{ours[0]}
		merged = append(merged, ours[1:]...)
		merged = append(merged, theirs[1:]...)
		return merged, true
	}

	// Trailing anchor.
	if len(ours) > 0 && len(theirs) > 0 {
		last := ours[len(ours)-1]
		if last == theirs[len(theirs)-1] && strings.TrimSpace(last) != "" {
			var merged []string
			merged = append(merged, ours[:len(ours)-1]...)
			merged = append(merged, theirs[:len(theirs)-1]...)
			merged = append(merged, last)
			return merged, true
		}
	}

	// Subset.
	switch {
	case isStrictSubset(ours, theirs):
		return theirs, true
	case isStrictSubset(theirs, ours):
		return ours, true
	}

	return nil, false
}

// isStrictSubset reports whether the non-blank lines of sub
// are a strict subset of the non-blank lines of super.
func isStrictSubset(sub, super []string) bool {
	subSet := nonBlankSet(sub)
	superSet := nonBlankSet(super)

	if len(subSet) >= len(superSet) {
		return false
	}
	for line := range subSet {
		if _, ok := superSet[line]; !ok {
			return false
		}
	}
	return true
}

func nonBlankSet(lines []string) map[string]struct{} {
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}
