package patch

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveWithin resolves a patch-declared relative path against the
// (already absolute) working root. Absolute paths and paths whose cleaned
// form lands outside the root are rejected. The check is pure: no
// directories are created here.
func resolveWithin(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", unsafePathf("Unsafe path '%s': absolute paths are not allowed", rel)
	}

	full := filepath.Clean(filepath.Join(root, rel))
	back, err := filepath.Rel(root, full)
	if err != nil {
		return "", unsafePathf("Unsafe path '%s': cannot be resolved under the working directory", rel)
	}
	if back == ".." || strings.HasPrefix(back, ".."+string(os.PathSeparator)) {
		return "", unsafePathf("Unsafe path '%s': escapes the working directory", rel)
	}
	return full, nil
}
