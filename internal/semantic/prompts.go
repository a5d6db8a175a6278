package semantic

import (
	"fmt"
	"strings"
)

// _systemPrompt pins the rules for every merge request.
const _systemPrompt = `You are merging two conflicting versions of a region of a text file.

Rules:
- Preserve all content from both versions.
- Maintain the original formatting and indentation.
- Add the incoming content at its natural location within the region.
- Output ONLY the merged region: no commentary, no conflict markers, no code fences.`

// _mergeTemplate is the user prompt for one conflicted region.
// Placeholders are in the {key} format.
const _mergeTemplate = `File: {path}

Context before the conflict:
{context_before}

VERSION A (current):
{ours}

VERSION B (incoming):
{theirs}

Context after the conflict:
{context_after}`

// BuildPrompt replaces {key} placeholders in a template
// with the provided values. Missing keys are left as-is.
func BuildPrompt(template string, vars map[string]string) string {
	estimated := len(template)
	for _, v := range vars {
		estimated += len(v)
	}

	var out strings.Builder
	out.Grow(estimated)

	for i := 0; i < len(template); {
		if template[i] == '{' {
			if end := strings.IndexByte(template[i+1:], '}'); end != -1 {
				if v, ok := vars[template[i+1:i+1+end]]; ok {
					out.WriteString(v)
					i += end + 2
					continue
				}
			}
		}
		out.WriteByte(template[i])
		i++
	}

	return out.String()
}

// mergeMessages builds the conversation for one region merge.
func mergeMessages(path string, before, ours, theirs, after []string, refinements []string) []Message {
	user := BuildPrompt(_mergeTemplate, map[string]string{
		"path":           path,
		"context_before": strings.Join(before, "\n"),
		"ours":           strings.Join(ours, "\n"),
		"theirs":         strings.Join(theirs, "\n"),
		"context_after":  strings.Join(after, "\n"),
	})

	if len(refinements) > 0 {
		var b strings.Builder
		b.WriteString(user)
		b.WriteString("\n\nAdditional instructions, in order:\n")
		for i, r := range refinements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
		user = strings.TrimRight(b.String(), "\n")
	}

	return []Message{
		{Role: RoleSystem, Content: _systemPrompt},
		{Role: RoleUser, Content: user},
	}
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}

	return strings.Join(lines[1:len(lines)-1], "\n")
}
