// Package text holds small helpers for CLI help text.
package text

import "strings"

// Dedent removes the common leading whitespace
// shared by all non-blank lines of s,
// along with leading and trailing blank lines.
// Use it to keep multi-line help strings indented with the code.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")

	prefix := ""
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			prefix, found = indent, true
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		out[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.Trim(strings.Join(out, "\n"), "\n")
}
