package patch

import "strings"

// normalizeLine trims trailing whitespace so incidental trailing-space
// drift is tolerated without counting as a content change.
func normalizeLine(s string) string {
	return strings.TrimRight(s, " \t\r")
}

// findSequence scans lines forward from start for the first position where
// pattern matches elementwise after normalization. With anchorEndOfFile set,
// the match nearest the end of lines wins instead of the first one. The
// search never looks before start, performs no fuzziness and no wraparound;
// both are policy decisions left to the caller.
func findSequence(lines, pattern []string, start int, anchorEndOfFile bool) (int, bool) {
	if start < 0 {
		start = 0
	}
	if len(pattern) == 0 {
		return start, true
	}

	last := len(lines) - len(pattern)
	found := -1
	for i := start; i <= last; i++ {
		if sequenceMatchesAt(lines, pattern, i) {
			if !anchorEndOfFile {
				return i, true
			}
			found = i
		}
	}
	if found >= 0 {
		return found, true
	}
	return 0, false
}

func sequenceMatchesAt(lines, pattern []string, at int) bool {
	for j, want := range pattern {
		if normalizeLine(lines[at+j]) != normalizeLine(want) {
			return false
		}
	}
	return true
}
