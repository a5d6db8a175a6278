package git

import (
	"bytes"
	"iter"
)

// splitLines iterates over the non-empty lines of the given output.
func splitLines(bs []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(bs) > 0 {
			line, rest, _ := bytes.Cut(bs, []byte{'\n'})
			bs = rest
			if len(line) == 0 {
				continue
			}
			if !yield(string(line)) {
				return
			}
		}
	}
}

// splitRecords iterates over NUL-delimited records of the given output.
func splitRecords(bs []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(bs) > 0 {
			rec, rest, _ := bytes.Cut(bs, []byte{0})
			bs = rest
			if len(bytes.TrimSpace(rec)) == 0 {
				continue
			}
			if !yield(string(rec)) {
				return
			}
		}
	}
}
