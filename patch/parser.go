package patch

import (
	"regexp"
	"strings"
)

// Patch text markers.
const (
	beginPatchMarker = "*** Begin Patch"
	endPatchMarker   = "*** End Patch"
	addFilePrefix    = "*** Add File: "
	deleteFilePrefix = "*** Delete File: "
	updateFilePrefix = "*** Update File: "
	moveToPrefix     = "*** Move to: "
	endOfFileMarker  = "*** End of File"
	contextPrefix    = "@@ "
	emptyContext     = "@@"
)

const validHeaderForms = "Valid hunk headers: '*** Add File: {path}', '*** Delete File: {path}', '*** Update File: {path}'"

// Some models emit unified-diff range headers ("-21,6 +21,7 @@") after the
// @@ marker instead of a literal anchor line. Those are treated as no anchor.
var rangeHeaderRe = regexp.MustCompile(`^-\d+(?:,\d+)?\s+\+\d+(?:,\d+)?\s+@@$`)

// ParsePatch parses raw patch text into a Patch document. It tolerates the
// malformations models commonly introduce: a shell here-doc wrapper, hunk
// headers and chunk markers prefixed with one or two '+' characters, a
// doubled '+' on added lines, and an end marker emitted as an added line.
// Failures carry the 1-based source line and the expected header forms.
func ParsePatch(text string) (*Patch, error) {
	lines := splitLines(strings.TrimSpace(text))
	lines = stripHeredoc(lines)
	if blankDocument(lines) {
		return nil, malformedf(0, "Empty patch")
	}

	lines = coerceEndMarker(lines)
	if blankDocument(lines) {
		return nil, malformedf(0, "Empty patch")
	}

	// Begin and end markers are consumed when present but never required.
	startIdx := 0
	endIdx := len(lines)
	if strings.TrimSpace(lines[0]) == beginPatchMarker {
		startIdx = 1
	}
	if endIdx > startIdx && isEndPatchMarker(lines[endIdx-1]) {
		endIdx--
	}
	content := lines[startIdx:endIdx]

	var hunks []Hunk
	idx := 0
	for idx < len(content) {
		if isBlank(content[idx]) {
			idx++
			continue
		}
		if isEndPatchMarker(content[idx]) {
			break
		}
		hunk, consumed, err := parseOneHunk(content[idx:], idx+startIdx+1)
		if err != nil {
			return nil, err
		}
		hunks = append(hunks, hunk)
		idx += consumed
	}

	if len(hunks) == 0 {
		return nil, malformedf(0, "No files were modified.")
	}

	for idx < len(content) {
		if isBlank(content[idx]) || isEndPatchMarker(content[idx]) {
			idx++
			continue
		}
		return nil, malformedf(idx+startIdx+1,
			"Invalid patch hunk on line %d: '%s' is not a valid hunk header. %s",
			idx+startIdx+1, content[idx], validHeaderForms)
	}

	return &Patch{Hunks: hunks}, nil
}

// splitLines splits on '\n' and drops a trailing '\r' from each line, so
// CRLF patch text yields the same lines as LF text and no '\r' ever leaks
// into written file content.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func blankDocument(lines []string) bool {
	return len(lines) == 0 || (len(lines) == 1 && strings.TrimSpace(lines[0]) == "")
}

// stripHeredoc removes a single enclosing shell here-doc wrapper, emitted
// when a model pastes the whole `apply_patch <<EOF ... EOF` invocation.
func stripHeredoc(lines []string) []string {
	if len(lines) < 4 {
		return lines
	}
	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	switch first {
	case "<<EOF", "<<'EOF'", `<<"EOF"`:
		if strings.HasSuffix(last, "EOF") {
			return lines[1 : len(lines)-1]
		}
	}
	return lines
}

// coerceEndMarker recovers the common case where "*** End Patch" was emitted
// as an added line of the final hunk ("+*** End Patch", optionally followed
// by a bare "+"). Trailing blank lines are dropped first. It stays
// conservative to avoid mangling legitimate file content.
func coerceEndMarker(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return lines
	}

	if strings.TrimSpace(lines[len(lines)-1]) == "+"+endPatchMarker {
		lines[len(lines)-1] = endPatchMarker
		return lines
	}
	if len(lines) >= 2 &&
		strings.TrimSpace(lines[len(lines)-2]) == "+"+endPatchMarker &&
		strings.TrimSpace(lines[len(lines)-1]) == "+" {
		lines = lines[:len(lines)-1]
		lines[len(lines)-1] = endPatchMarker
		return lines
	}
	return lines
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func countLeadingPluses(s string, maxPluses int) int {
	i := 0
	for i < len(s) && s[i] == '+' {
		i++
		if i > maxPluses {
			return i
		}
	}
	return i
}

// stripPrefixedMarker trims the line and removes up to two leading '+'
// characters, returning the trimmed line unchanged when there are more.
func stripPrefixedMarker(line string) string {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "+") {
		return s
	}
	i := countLeadingPluses(s, 2)
	if i > 2 {
		return s
	}
	return strings.TrimLeft(s[i:], " \t")
}

func isHunkHeader(line string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, addFilePrefix) ||
		strings.HasPrefix(s, deleteFilePrefix) ||
		strings.HasPrefix(s, updateFilePrefix)
}

// isPrefixedHunkHeader reports whether the line is a hunk header hiding
// behind one or two '+' characters. A line that did not change under
// stripping is not "prefixed".
func isPrefixedHunkHeader(line string) bool {
	stripped := stripPrefixedMarker(line)
	if stripped == strings.TrimSpace(line) {
		return false
	}
	return isHunkHeader(stripped)
}

func isPrefixedEndPatch(line string) bool {
	stripped := stripPrefixedMarker(line)
	if stripped == strings.TrimSpace(line) {
		return false
	}
	return stripped == endPatchMarker
}

func isEndPatchMarker(line string) bool {
	if strings.TrimSpace(line) == endPatchMarker {
		return true
	}
	return stripPrefixedMarker(line) == endPatchMarker
}

// normalizeHunkHeader strips up to two leading '+' characters from a hunk
// header line. The stripping is reverted when the remainder is not one of
// the three known header forms, so legitimate content starting with '+' is
// left alone.
func normalizeHunkHeader(line string) string {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "+") {
		return s
	}
	i := countLeadingPluses(s, 2)
	if i > 2 {
		return s
	}
	candidate := strings.TrimLeft(s[i:], " \t")
	if isHunkHeader(candidate) {
		return candidate
	}
	return s
}

func parseOneHunk(lines []string, lineNumber int) (Hunk, int, error) {
	first := normalizeHunkHeader(lines[0])

	switch {
	case strings.HasPrefix(first, addFilePrefix):
		path := strings.TrimSpace(first[len(addFilePrefix):])
		var content []string
		consumed := 1
		for _, line := range lines[1:] {
			if isPrefixedHunkHeader(line) || isPrefixedEndPatch(line) || isEndPatchMarker(line) {
				break
			}
			if !strings.HasPrefix(line, "+") {
				break
			}
			val := line[1:]
			if strings.HasPrefix(val, "+") {
				val = val[1:]
			}
			content = append(content, val)
			consumed++
		}
		body := ""
		if len(content) > 0 {
			body = strings.Join(content, "\n") + "\n"
		}
		return AddFile{FilePath: path, Content: body}, consumed, nil

	case strings.HasPrefix(first, deleteFilePrefix):
		path := strings.TrimSpace(first[len(deleteFilePrefix):])
		return DeleteFile{FilePath: path}, 1, nil

	case strings.HasPrefix(first, updateFilePrefix):
		path := strings.TrimSpace(first[len(updateFilePrefix):])
		consumed := 1
		remaining := lines[1:]

		moveTo := ""
		if len(remaining) > 0 && strings.HasPrefix(strings.TrimSpace(remaining[0]), moveToPrefix) {
			moveTo = strings.TrimSpace(strings.TrimSpace(remaining[0])[len(moveToPrefix):])
			consumed++
			remaining = remaining[1:]
		}

		var chunks []UpdateFileChunk
		for len(remaining) > 0 {
			if isBlank(remaining[0]) {
				consumed++
				remaining = remaining[1:]
				continue
			}
			if isHunkHeader(remaining[0]) || isPrefixedHunkHeader(remaining[0]) || isEndPatchMarker(remaining[0]) {
				break
			}
			chunk, chunkConsumed, err := parseUpdateChunk(remaining, lineNumber+consumed, len(chunks) == 0)
			if err != nil {
				return nil, 0, err
			}
			chunks = append(chunks, chunk)
			consumed += chunkConsumed
			remaining = remaining[chunkConsumed:]
		}

		if len(chunks) == 0 {
			return nil, 0, malformedf(lineNumber,
				"Invalid patch hunk on line %d: Update file hunk for path '%s' is empty", lineNumber, path)
		}
		return UpdateFile{FilePath: path, MoveTo: moveTo, Chunks: chunks}, consumed, nil

	default:
		return nil, 0, malformedf(lineNumber,
			"Invalid patch hunk on line %d: '%s' is not a valid hunk header. %s",
			lineNumber, first, validHeaderForms)
	}
}

// parseUpdateChunk parses one chunk of an Update File hunk. Only the first
// chunk of a file may omit the @@ marker.
func parseUpdateChunk(lines []string, lineNumber int, allowMissingContext bool) (UpdateFileChunk, int, error) {
	first := lines[0]

	// Normalize '+@@ ...' and '++@@ ...' to '@@ ...'.
	if ls := strings.TrimLeft(first, " \t"); strings.HasPrefix(ls, "++@@") {
		first = ls[2:]
	} else if strings.HasPrefix(ls, "+@@") {
		first = ls[1:]
	}

	changeContext := ""
	startIdx := 0
	switch {
	case strings.TrimSpace(first) == emptyContext:
		startIdx = 1
	case strings.HasPrefix(first, contextPrefix):
		raw := strings.TrimSpace(first[len(contextPrefix):])
		if !rangeHeaderRe.MatchString(raw) {
			changeContext = raw
		}
		startIdx = 1
	default:
		if !allowMissingContext {
			return UpdateFileChunk{}, 0, malformedf(lineNumber,
				"Invalid patch hunk on line %d: Expected update hunk to start with a @@ context marker, got: '%s'",
				lineNumber, first)
		}
	}

	var oldLines, newLines []string
	isEOF := false
	consumed := startIdx

body:
	for _, line := range lines[startIdx:] {
		if strings.TrimSpace(line) == endOfFileMarker {
			isEOF = true
			consumed++
			break
		}
		if line == "" {
			oldLines = append(oldLines, "")
			newLines = append(newLines, "")
			consumed++
			continue
		}

		marker := line[0]
		text := line[1:]
		switch marker {
		case ' ':
			oldLines = append(oldLines, text)
			newLines = append(newLines, text)
		case '-':
			oldLines = append(oldLines, text)
		case '+':
			// Doubled '+' on additions collapses to one.
			if strings.HasPrefix(text, "+") {
				text = text[1:]
			}
			newLines = append(newLines, text)
		default:
			break body
		}
		consumed++
	}

	if consumed == startIdx {
		return UpdateFileChunk{}, 0, malformedf(lineNumber+1,
			"Invalid patch hunk on line %d: Update hunk does not contain any lines", lineNumber+1)
	}

	return UpdateFileChunk{
		ChangeContext: changeContext,
		OldLines:      oldLines,
		NewLines:      newLines,
		IsEndOfFile:   isEOF,
	}, consumed, nil
}
