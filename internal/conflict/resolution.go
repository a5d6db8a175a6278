package conflict

import "strings"

// Method records how a resolution was produced.
type Method string

// Resolution methods, from cheapest to most involved.
const (
	MethodStructural Method = "structural"
	MethodSemantic   Method = "semantic"
	MethodManual     Method = "manual"
)

// Resolution is the outcome of one resolver pass
// over one conflicted file.
type Resolution struct {
	// OK reports whether the resolver produced a merge.
	OK bool

	// MergedContent is the full reconstructed file contents.
	// Set only when OK.
	MergedContent string

	// Method is how the resolution was produced.
	Method Method

	// Explanation says why the resolver gave up or what it did.
	Explanation string

	// Err holds the failure that stopped the resolver, if any.
	// A resolver that merely does not apply leaves this nil.
	Err error
}

// Failed builds a not-OK resolution with the given explanation.
func Failed(method Method, explanation string) Resolution {
	return Resolution{Method: method, Explanation: explanation}
}

// SpliceRegion reconstructs the full file contents
// by replacing the first marker block of raw
// with the resolved lines.
func SpliceRegion(raw string, resolved []string) string {
	lines := strings.Split(raw, "\n")

	start := -1
	end := -1
	for i, line := range lines {
		if start < 0 && strings.HasPrefix(line, _markerOurs) {
			start = i
			continue
		}
		if start >= 0 && strings.HasPrefix(line, _markerTheirs) {
			end = i
			break
		}
	}
	if start < 0 || end < 0 {
		return raw
	}

	merged := make([]string, 0, len(lines)-(end-start+1)+len(resolved))
	merged = append(merged, lines[:start]...)
	merged = append(merged, resolved...)
	merged = append(merged, lines[end+1:]...)
	return strings.Join(merged, "\n")
}
