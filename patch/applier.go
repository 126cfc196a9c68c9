package patch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ApplierOptions configures an Applier. The zero value is usable: no
// logging, default fuzzy matcher.
type ApplierOptions struct {
	// Logger receives hunk-level and strategy-level events. Nil disables
	// logging.
	Logger *zap.Logger

	// Matcher overrides the fuzzy matcher thresholds. Nil uses defaults.
	Matcher *FuzzyMatcher

	// DisableFuzzy turns the fuzzy fallback off entirely; exact and
	// normalized strategies still run.
	DisableFuzzy bool
}

// Applier applies parsed patches to a file tree. One Apply call processes
// hunks strictly sequentially; nothing is shared across calls, so a single
// Applier may be used from multiple goroutines on disjoint trees.
type Applier struct {
	log   *zap.Logger
	fuzzy *FuzzyMatcher // nil when fuzzy matching is disabled
}

// NewApplier builds an Applier from opts.
func NewApplier(opts ApplierOptions) *Applier {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var fuzzy *FuzzyMatcher
	if !opts.DisableFuzzy {
		fuzzy = opts.Matcher
		if fuzzy == nil {
			fuzzy = NewFuzzyMatcher()
		}
	}
	return &Applier{log: log, fuzzy: fuzzy}
}

// Apply parses patchText and applies it under workdir with a
// default-configured Applier. See Applier.Apply.
func Apply(ctx context.Context, patchText, workdir string) (*AffectedPaths, error) {
	return NewApplier(ApplierOptions{}).Apply(ctx, patchText, workdir)
}

// Apply parses patchText and applies every hunk in document order under
// workdir. It fails fast: the first failing hunk aborts the rest, and hunks
// already applied to disk stay applied - there is no rollback. Cancellation
// is honored between hunks.
func (a *Applier) Apply(ctx context.Context, patchText, workdir string) (*AffectedPaths, error) {
	doc, err := ParsePatch(patchText)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fsFailf(err, "Failed to resolve working directory %s", workdir)
	}

	affected := &AffectedPaths{}
	for _, hunk := range doc.Hunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.applyHunk(hunk, root, affected); err != nil {
			return nil, err
		}
	}
	affected.Success = true
	return affected, nil
}

func (a *Applier) applyHunk(hunk Hunk, root string, affected *AffectedPaths) error {
	switch h := hunk.(type) {
	case AddFile:
		return a.applyAdd(h, root, affected)
	case DeleteFile:
		return a.applyDelete(h, root, affected)
	case UpdateFile:
		return a.applyUpdate(h, root, affected)
	default:
		return malformedf(0, "unsupported hunk type %T", hunk)
	}
}

func (a *Applier) applyAdd(h AddFile, root string, affected *AffectedPaths) error {
	full, err := resolveWithin(root, h.FilePath)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(full); dir != root {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fsFailf(err, "Failed to create directory for %s", h.FilePath)
		}
	}
	if err := writeFileAtomic(full, h.Content); err != nil {
		return fsFailf(err, "Failed to write file %s", h.FilePath)
	}
	a.log.Debug("added file", zap.String("path", h.FilePath))
	affected.Added = append(affected.Added, h.FilePath)
	return nil
}

func (a *Applier) applyDelete(h DeleteFile, root string, affected *AffectedPaths) error {
	full, err := resolveWithin(root, h.FilePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fsFailf(err, "Failed to delete file %s", h.FilePath)
	}
	a.log.Debug("deleted file", zap.String("path", h.FilePath))
	affected.Deleted = append(affected.Deleted, h.FilePath)
	return nil
}

func (a *Applier) applyUpdate(h UpdateFile, root string, affected *AffectedPaths) error {
	full, err := resolveWithin(root, h.FilePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return fsFailf(err, "Failed to read file to update %s", h.FilePath)
	}

	lines := strings.Split(string(data), "\n")
	// A trailing empty element stands for the file's final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	newLines, err := a.applyChunks(lines, h.Chunks, h.FilePath)
	if err != nil {
		return err
	}

	// The written file always ends with exactly one newline.
	if len(newLines) == 0 || newLines[len(newLines)-1] != "" {
		newLines = append(newLines, "")
	}
	content := strings.Join(newLines, "\n")

	if h.MoveTo != "" {
		dest, err := resolveWithin(root, h.MoveTo)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(dest); dir != root {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fsFailf(err, "Failed to create directory for %s", h.MoveTo)
			}
		}
		if err := writeFileAtomic(dest, content); err != nil {
			return fsFailf(err, "Failed to write file %s", h.MoveTo)
		}
		if err := os.Remove(full); err != nil {
			return fsFailf(err, "Failed to remove original %s", h.FilePath)
		}
		a.log.Debug("updated file",
			zap.String("path", h.FilePath),
			zap.String("moved_to", h.MoveTo),
			zap.Int("chunks", len(h.Chunks)))
		affected.Modified = append(affected.Modified, h.MoveTo)
		return nil
	}

	if err := writeFileAtomic(full, content); err != nil {
		return fsFailf(err, "Failed to write file %s", h.FilePath)
	}
	a.log.Debug("updated file",
		zap.String("path", h.FilePath),
		zap.Int("chunks", len(h.Chunks)))
	affected.Modified = append(affected.Modified, h.FilePath)
	return nil
}

// applyChunks resolves each chunk's location and splices it into the line
// buffer. The cursor is monotonic: each chunk's search starts where the
// previous chunk's match ended, so hunks authored top-to-bottom land on the
// intended occurrences even when the file repeats itself.
func (a *Applier) applyChunks(original []string, chunks []UpdateFileChunk, path string) ([]string, error) {
	if len(chunks) == 0 {
		return nil, malformedf(0, "Update file hunk for path '%s' is empty", path)
	}

	lines := append([]string(nil), original...)
	cursor := 0

	for _, chunk := range chunks {
		if chunk.ChangeContext != "" {
			anchor := []string{chunk.ChangeContext}
			idx, ok := findSequence(lines, anchor, cursor, false)
			if !ok {
				return nil, notFoundf("Failed to find context '%s' in %s", chunk.ChangeContext, path)
			}
			if len(chunk.OldLines) == 0 {
				// A pure insertion must not guess between duplicate anchors.
				if _, again := findSequence(lines, anchor, idx+1, false); again {
					return nil, ambiguousf("Ambiguous context '%s' in %s: the anchor matches more than one location", chunk.ChangeContext, path)
				}
			}
			cursor = idx + 1
		}

		if len(chunk.OldLines) == 0 {
			insertAt := cursor
			if chunk.ChangeContext == "" {
				insertAt = len(lines)
				if len(lines) > 0 && lines[len(lines)-1] == "" {
					insertAt--
				}
			}
			lines = splice(lines, insertAt, 0, chunk.NewLines)
			cursor = insertAt + len(chunk.NewLines)
			continue
		}

		idx, matchLen, replacement, err := a.locateChunk(lines, chunk, cursor, path)
		if err != nil {
			return nil, err
		}
		lines = splice(lines, idx, matchLen, replacement)
		cursor = idx + len(replacement)
	}

	return lines, nil
}

// locateChunk runs the fallback ladder for a replacement chunk: exact
// search from the cursor, a retry with a trailing blank dropped, a
// wraparound retry from the start, then fuzzy search from the cursor and
// from the start. Returns the match start, its length and the replacement
// block to splice in.
func (a *Applier) locateChunk(lines []string, chunk UpdateFileChunk, cursor int, path string) (int, int, []string, error) {
	pattern := chunk.OldLines
	replacement := chunk.NewLines

	idx, ok := findSequence(lines, pattern, cursor, chunk.IsEndOfFile)

	if !ok && len(pattern) > 0 && pattern[len(pattern)-1] == "" {
		// Tolerate a spurious trailing blank; drop it from both sides so
		// the line counts stay consistent.
		pattern = pattern[:len(pattern)-1]
		if len(replacement) > 0 && replacement[len(replacement)-1] == "" {
			replacement = replacement[:len(replacement)-1]
		}
		idx, ok = findSequence(lines, pattern, cursor, chunk.IsEndOfFile)
	}

	if !ok && cursor > 0 {
		// The hunk may have been authored out of order; retry once from
		// the top before resorting to fuzziness.
		idx, ok = findSequence(lines, pattern, 0, chunk.IsEndOfFile)
		if ok {
			a.log.Debug("matched before cursor", zap.String("path", path), zap.Int("index", idx))
		}
	}
	if ok {
		return idx, len(pattern), replacement, nil
	}

	if a.fuzzy != nil {
		match, ok := a.fuzzy.FindNear(lines, pattern, cursor)
		if !ok && cursor > 0 {
			match, ok = a.fuzzy.FindNear(lines, pattern, 0)
		}
		if ok {
			a.log.Info("fuzzy match accepted",
				zap.String("path", path),
				zap.Int("index", match.Start),
				zap.Int("lines", match.Length),
				zap.Float64("score", match.Score))
			return match.Start, match.Length, replacement, nil
		}
	}

	return 0, 0, nil, notFoundf("Failed to find expected lines in %s:\n%s", path, strings.Join(chunk.OldLines, "\n"))
}

func splice(lines []string, start, count int, insert []string) []string {
	out := make([]string, 0, len(lines)-count+len(insert))
	out = append(out, lines[:start]...)
	out = append(out, insert...)
	out = append(out, lines[start+count:]...)
	return out
}

// writeFileAtomic writes content via a temp file and rename, preserving the
// target's mode when it already exists.
func writeFileAtomic(fullPath, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".apply-patch-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if info, err := os.Stat(fullPath); err == nil {
		_ = os.Chmod(tmpPath, info.Mode())
	} else {
		_ = os.Chmod(tmpPath, 0o644)
	}

	return os.Rename(tmpPath, fullPath)
}
