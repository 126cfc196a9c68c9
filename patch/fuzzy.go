package patch

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Fuzzy matching defaults. The two-stage gate (coarse ratio, then exact
// code-line count, then weighted alignment score) allows drift in comments
// and whitespace while refusing to silently rewrite mismatched code.
const (
	defaultMinRatio       = 0.6
	defaultAcceptScore    = 0.9
	defaultMinCodeMatches = 2

	// Weight of a comment or blank pattern line relative to a code line.
	commentWeight = 0.1
	codeWeight    = 1.0
)

var dmp = diffmatchpatch.New()

// FuzzyMatcher locates a drifted block of pattern lines inside a file.
// It is stateless apart from its thresholds and safe for concurrent use.
type FuzzyMatcher struct {
	// MinRatio is the coarse full-text similarity floor; candidate windows
	// at or below it are discarded before any scoring.
	MinRatio float64

	// AcceptScore is the weighted alignment score a window must reach.
	AcceptScore float64

	// MinCodeMatches is how many of the pattern's code lines must appear
	// verbatim in a window before it is considered at all.
	MinCodeMatches int
}

// NewFuzzyMatcher returns a matcher with the calibrated default thresholds.
func NewFuzzyMatcher() *FuzzyMatcher {
	return &FuzzyMatcher{
		MinRatio:       defaultMinRatio,
		AcceptScore:    defaultAcceptScore,
		MinCodeMatches: defaultMinCodeMatches,
	}
}

// FuzzyMatch is an accepted fuzzy location: Length lines starting at Start.
type FuzzyMatch struct {
	Start  int
	Length int
	Score  float64
}

// FindNear searches windows of roughly the pattern's length, starting at or
// after start, for the single best-scoring candidate. It reports no match
// unless the best score reaches AcceptScore. Ties go to the first
// occurrence: lowest start index, then shortest window.
func (m *FuzzyMatcher) FindNear(lines, pattern []string, start int) (FuzzyMatch, bool) {
	if len(pattern) == 0 || len(lines) == 0 {
		return FuzzyMatch{}, false
	}
	if start < 0 {
		start = 0
	}

	n := len(pattern)
	minLen := int(math.Floor(float64(n) * 0.7))
	maxLen := int(math.Ceil(float64(n) * 1.3))
	if n <= 1 {
		minLen--
		maxLen++
	}
	if minLen < 1 {
		minLen = 1
	}
	if maxLen > len(lines) {
		maxLen = len(lines)
	}

	patJoined := strings.Join(pattern, "\n")
	patTrimmed := trimAll(pattern)

	best := FuzzyMatch{Start: -1}
	for length := minLen; length <= maxLen; length++ {
		for i := start; i+length <= len(lines); i++ {
			window := lines[i : i+length]
			if similarityRatio(strings.Join(window, "\n"), patJoined) <= m.MinRatio {
				continue
			}

			winTrimmed := trimAll(window)
			if exactCodeMatches(patTrimmed, winTrimmed) < m.MinCodeMatches {
				continue
			}

			score := m.scoreWindow(patTrimmed, winTrimmed)
			cand := FuzzyMatch{Start: i, Length: length, Score: score}
			if better(cand, best) {
				best = cand
			}
		}
	}

	if best.Start < 0 || best.Score < m.AcceptScore {
		return FuzzyMatch{}, false
	}
	return best, true
}

func better(cand, best FuzzyMatch) bool {
	if best.Start < 0 {
		return true
	}
	if cand.Score != best.Score {
		return cand.Score > best.Score
	}
	if cand.Start != best.Start {
		return cand.Start < best.Start
	}
	return cand.Length < best.Length
}

// scoreWindow computes the weighted alignment score of a candidate window
// against the pattern, both given as trimmed lines. Code lines earn credit
// only on verbatim equality; comment and blank lines earn partial credit by
// pairwise similarity. A pattern with three or more code lines none of
// which appears verbatim in the window scores zero outright.
func (m *FuzzyMatcher) scoreWindow(pattern, window []string) float64 {
	codeCount := 0
	for _, l := range pattern {
		if !isCommentOrBlank(l) {
			codeCount++
		}
	}
	if codeCount >= 3 && exactCodeMatches(pattern, window) == 0 {
		return 0
	}

	var credit, total float64
	for _, sp := range alignLines(pattern, window) {
		switch sp.tag {
		case spanEqual:
			for _, l := range sp.pat {
				w := lineWeight(l)
				credit += w
				total += w
			}
		case spanReplace:
			paired := min(len(sp.pat), len(sp.win))
			for i := 0; i < paired; i++ {
				w := lineWeight(sp.pat[i])
				total += w
				if isCommentOrBlank(sp.pat[i]) {
					credit += w * similarityRatio(sp.pat[i], sp.win[i])
				} else if sp.pat[i] == sp.win[i] {
					credit += w
				}
			}
			for _, l := range sp.pat[paired:] {
				total += lineWeight(l)
			}
		case spanDelete:
			// Pattern lines with no counterpart weigh against the score.
			for _, l := range sp.pat {
				total += lineWeight(l)
			}
		case spanInsert:
			// Extra window lines carry no pattern weight.
		}
	}

	if total == 0 {
		return 0
	}
	return credit / total
}

// isCommentOrBlank classifies a trimmed line. The dialect treats '#'
// comments and blank lines as soft content that may drift.
func isCommentOrBlank(trimmed string) bool {
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func lineWeight(trimmed string) float64 {
	if isCommentOrBlank(trimmed) {
		return commentWeight
	}
	return codeWeight
}

func trimAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

// exactCodeMatches counts the pattern's code lines that appear verbatim
// among the window's code lines. Both sides are trimmed already.
func exactCodeMatches(pattern, window []string) int {
	present := make(map[string]struct{}, len(window))
	for _, l := range window {
		if !isCommentOrBlank(l) {
			present[l] = struct{}{}
		}
	}
	count := 0
	for _, l := range pattern {
		if isCommentOrBlank(l) {
			continue
		}
		if _, ok := present[l]; ok {
			count++
		}
	}
	return count
}

// similarityRatio is a normalized edit-distance ratio between two strings:
// 1 - levenshtein/maxlen, in [0, 1].
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return 1 - float64(dist)/float64(maxLen)
}

type spanTag int

const (
	spanEqual spanTag = iota
	spanReplace
	spanDelete
	spanInsert
)

// opSpan is one aligned run of lines: pat holds pattern-side lines, win the
// window-side lines. Equal spans carry both, delete only pat, insert only
// win, replace both.
type opSpan struct {
	tag spanTag
	pat []string
	win []string
}

// alignLines aligns pattern lines to window lines using a line-level diff:
// each line is mapped to a rune, diffed, and the runs folded back into
// equal/replace/delete/insert spans. Adjacent delete+insert runs become one
// replace span.
func alignLines(pattern, window []string) []opSpan {
	a := strings.Join(pattern, "\n") + "\n"
	b := strings.Join(window, "\n") + "\n"
	c1, c2, tokens := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(c1, c2, false)

	var spans []opSpan
	var pendingDel, pendingIns []string
	flush := func() {
		switch {
		case len(pendingDel) > 0 && len(pendingIns) > 0:
			spans = append(spans, opSpan{tag: spanReplace, pat: pendingDel, win: pendingIns})
		case len(pendingDel) > 0:
			spans = append(spans, opSpan{tag: spanDelete, pat: pendingDel})
		case len(pendingIns) > 0:
			spans = append(spans, opSpan{tag: spanInsert, win: pendingIns})
		}
		pendingDel, pendingIns = nil, nil
	}

	for _, d := range diffs {
		decoded := decodeTokens(d.Text, tokens)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			spans = append(spans, opSpan{tag: spanEqual, pat: decoded, win: decoded})
		case diffmatchpatch.DiffDelete:
			pendingDel = append(pendingDel, decoded...)
		case diffmatchpatch.DiffInsert:
			pendingIns = append(pendingIns, decoded...)
		}
	}
	flush()
	return spans
}

func decodeTokens(text string, tokens []string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, strings.TrimSuffix(tokens[r], "\n"))
	}
	return out
}
