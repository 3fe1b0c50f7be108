package workspace

import (
	"path/filepath"
	"strings"
)

// IsValidPath reports whether path is a safe, workspace-relative path: not
// absolute, and not escaping the workspace root via "..".
func IsValidPath(path string) bool {
	if path == "" || filepath.IsAbs(path) {
		return false
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == "." {
		return false
	}

	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return false
		}
	}

	return true
}
