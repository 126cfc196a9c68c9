package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	plain := notFoundf("Failed to find context '%s' in %s", "def main():", "app.py")
	if got := plain.Error(); got != "Failed to find context 'def main():' in app.py" {
		t.Errorf("Error() = %q", got)
	}

	cause := fs.ErrNotExist
	wrapped := fsFailf(cause, "Failed to delete file %s", "a.txt")
	if got := wrapped.Error(); got != fmt.Sprintf("Failed to delete file a.txt: %v", cause) {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		ok   bool
	}{
		{"malformed", malformedf(3, "bad header"), ErrMalformedPatch, true},
		{"unsafe path", unsafePathf("escape"), ErrUnsafePath, true},
		{"not found", notFoundf("missing"), ErrLocationNotFound, true},
		{"ambiguous", ambiguousf("twice"), ErrAmbiguousLocation, true},
		{"filesystem", fsFailf(nil, "io"), ErrFileSystem, true},
		{"wrapped once more", fmt.Errorf("context: %w", unsafePathf("escape")), ErrUnsafePath, true},
		{"foreign error", errors.New("nope"), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && kind != tt.kind {
				t.Errorf("kind = %v, want %v", kind, tt.kind)
			}
		})
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrMalformedPatch, "malformed patch"},
		{ErrUnsafePath, "unsafe path"},
		{ErrLocationNotFound, "location not found"},
		{ErrAmbiguousLocation, "ambiguous location"},
		{ErrFileSystem, "filesystem failure"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestParseErrorsCarryLineNumbers(t *testing.T) {
	_, err := ParsePatch("not a patch at all")
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if pe.Line != 1 {
		t.Errorf("line = %d, want 1", pe.Line)
	}
}
