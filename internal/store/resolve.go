package store

import (
	"path/filepath"
	"strings"
)

// ResolveDir returns the directory attachments are stored in. Absolute paths
// are used as-is; relative ones are joined to invocationDir after their
// leading separators are stripped.
func ResolveDir(dir, invocationDir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Join(invocationDir, strings.TrimLeft(dir, `/\`))
}
