// Package patch parses a lenient, LLM-oriented patch dialect and applies it
// to a file tree. The format is a stripped-down envelope
// (*** Begin Patch / *** End Patch) containing Add File, Delete File and
// Update File operations. The parser recovers from common model
// malformations and the applier resolves drifted anchors with exact,
// normalized and fuzzy search strategies before giving up.
package patch

// Patch is an ordered patch document. Hunks are applied strictly in
// document order and are never reordered.
type Patch struct {
	Hunks []Hunk
}

// Hunk is one top-level file operation declared in a patch. It is a closed
// variant set: AddFile, DeleteFile or UpdateFile. Dispatch with a type
// switch over those three types.
type Hunk interface {
	// Path returns the file path the hunk is declared against, relative to
	// the working directory.
	Path() string

	sealedHunk()
}

// AddFile creates a new file with the given content. The content is the
// literal file body, newline-terminated unless empty.
type AddFile struct {
	FilePath string
	Content  string
}

func (h AddFile) Path() string { return h.FilePath }
func (AddFile) sealedHunk()    {}

// DeleteFile removes an existing file. Deleting a missing file is an error.
type DeleteFile struct {
	FilePath string
}

func (h DeleteFile) Path() string { return h.FilePath }
func (DeleteFile) sealedHunk()    {}

// UpdateFile patches an existing file in place through an ordered sequence
// of chunks, optionally renaming it to MoveTo afterwards. Chunks must be
// authored top-to-bottom in the file: each chunk's search starts no earlier
// than where the previous chunk's match ended.
type UpdateFile struct {
	FilePath string
	MoveTo   string // rename destination; empty when the file stays in place
	Chunks   []UpdateFileChunk
}

func (h UpdateFile) Path() string { return h.FilePath }
func (UpdateFile) sealedHunk()    {}

// UpdateFileChunk is one localized change inside an UpdateFile hunk.
type UpdateFileChunk struct {
	// ChangeContext is a single literal anchor line searched for before
	// OldLines. Empty means no anchor was declared.
	ChangeContext string

	// OldLines are the lines expected in the current file. Empty means the
	// chunk is a pure insertion.
	OldLines []string

	// NewLines replace OldLines (or are inserted, for a pure insertion).
	NewLines []string

	// IsEndOfFile marks a chunk whose match must sit at the tail of the
	// file (the "*** End of File" terminator).
	IsEndOfFile bool
}

// AffectedPaths accumulates the outcome of one Apply call. The slices hold
// the declared relative paths in the order their hunks were applied.
type AffectedPaths struct {
	Added    []string
	Modified []string
	Deleted  []string
	Success  bool
}
