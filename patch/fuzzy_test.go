package patch

import "testing"

func TestScoreWindow_IdenticalBlock(t *testing.T) {
	m := NewFuzzyMatcher()
	block := trimAll([]string{
		"# Display settings",
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
	})
	if score := m.scoreWindow(block, block); score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
}

func TestScoreWindow_CommentDriftScoresHigh(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := trimAll([]string{
		"# Display settings for the renderer",
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
	})
	window := trimAll([]string{
		"# Display configuration",
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
	})
	score := m.scoreWindow(pattern, window)
	if score < m.AcceptScore {
		t.Errorf("score = %v, want >= %v", score, m.AcceptScore)
	}
	if score >= 1.0 {
		t.Errorf("score = %v, drifted comment should cost something", score)
	}
}

func TestScoreWindow_IndentationOnlyDriftIsPerfect(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := trimAll([]string{
		"if ready:",
		"    launch()",
		"    report()",
	})
	window := trimAll([]string{
		"  if ready:",
		"      launch()",
		"      report()",
	})
	if score := m.scoreWindow(pattern, window); score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
}

func TestScoreWindow_ExtraBlankLineInWindow(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := trimAll([]string{
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
	})
	window := trimAll([]string{
		"WIDTH = 320",
		"",
		"HEIGHT = 180",
		"SCALE = 4",
	})
	if score := m.scoreWindow(pattern, window); score < m.AcceptScore {
		t.Errorf("score = %v, an extra blank line must stay above %v", score, m.AcceptScore)
	}
}

func TestScoreWindow_SingleCodeLineMismatch(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := trimAll([]string{
		"# constants",
		"a = 1",
		"b = 2",
		"c = 3",
	})
	window := trimAll([]string{
		"# constants",
		"a = 1",
		"b = 9",
		"c = 3",
	})
	score := m.scoreWindow(pattern, window)
	if score >= m.AcceptScore {
		t.Errorf("score = %v, altered code must not reach %v", score, m.AcceptScore)
	}
	if score == 0 {
		t.Error("score = 0, two code lines still match exactly")
	}
}

func TestScoreWindow_AllCodeMismatchedIsZero(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := trimAll([]string{
		"x = 1",
		"y = 2",
		"z = 3",
	})
	window := trimAll([]string{
		"x = 9",
		"y = 8",
		"z = 7",
	})
	if score := m.scoreWindow(pattern, window); score != 0 {
		t.Errorf("score = %v, want categorical rejection to 0", score)
	}
}

func TestScoreWindow_MissingPatternLineCostsItsWeight(t *testing.T) {
	m := NewFuzzyMatcher()
	pattern := []string{"a = 1", "b = 2", "c = 3"}
	window := []string{"a = 1", "c = 3"}
	score := m.scoreWindow(pattern, window)
	want := 2.0 / 3.0
	if diff := score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestFindNear_AcceptsCommentDrift(t *testing.T) {
	file := []string{
		"# Display configuration",
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
		"",
		"def main():",
		"    pass",
	}
	pattern := []string{
		"# Display settings for the renderer",
		"WIDTH = 320",
		"HEIGHT = 180",
		"SCALE = 4",
	}

	m := NewFuzzyMatcher()
	match, ok := m.FindNear(file, pattern, 0)
	if !ok {
		t.Fatal("no match found")
	}
	if match.Start != 0 || match.Length != 4 {
		t.Errorf("match = %+v, want start 0 length 4", match)
	}
	if match.Score < m.AcceptScore {
		t.Errorf("score = %v, want >= %v", match.Score, m.AcceptScore)
	}
}

func TestFindNear_RejectsCorruptedIdentifiers(t *testing.T) {
	file := []string{
		"# Display settings",
		"INTERNAL_WIDTH_X = 320",
		"INTERNAL_HEIGHT_Y = 180",
		"SCALE_FACTOR = 4",
	}
	pattern := []string{
		"# Display settings",
		"INTERNAL_WIDTH = 320",
		"INTERNAL_HEIGHT = 180",
		"SCALE_FACTOR = 4",
	}

	m := NewFuzzyMatcher()
	if match, ok := m.FindNear(file, pattern, 0); ok {
		t.Errorf("accepted corrupted code block: %+v", match)
	}
}

func TestFindNear_HonorsStartIndex(t *testing.T) {
	file := []string{
		"a = 1",
		"b = 2",
		"c = 3",
	}
	pattern := []string{"a = 1", "b = 2"}

	m := NewFuzzyMatcher()
	if _, ok := m.FindNear(file, pattern, 2); ok {
		t.Error("matched a block that lies entirely before start")
	}
}

func TestFindNear_EmptyInputs(t *testing.T) {
	m := NewFuzzyMatcher()
	if _, ok := m.FindNear(nil, []string{"x"}, 0); ok {
		t.Error("matched in empty file")
	}
	if _, ok := m.FindNear([]string{"x"}, nil, 0); ok {
		t.Error("matched empty pattern")
	}
}

func TestExactCodeMatches(t *testing.T) {
	pattern := trimAll([]string{"# note", "", "a = 1", "b = 2"})
	window := trimAll([]string{"# other", "a = 1", "z = 9"})
	if got := exactCodeMatches(pattern, window); got != 1 {
		t.Errorf("exactCodeMatches = %d, want 1", got)
	}
}

func TestSimilarityRatio(t *testing.T) {
	if got := similarityRatio("same", "same"); got != 1 {
		t.Errorf("identical strings = %v, want 1", got)
	}
	if got := similarityRatio("", "text"); got != 0 {
		t.Errorf("empty side = %v, want 0", got)
	}
	got := similarityRatio("abc", "abd")
	want := 1 - 1.0/3.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("one edit in three runes = %v, want %v", got, want)
	}
}

func TestIsCommentOrBlank(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"# comment", true},
		{"#", true},
		{"code()", false},
		{"x = 1  # trailing comment", false},
	}
	for _, tt := range tests {
		if got := isCommentOrBlank(tt.in); got != tt.want {
			t.Errorf("isCommentOrBlank(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
