// Package pathsafe guards server-local file references against escaping
// the configured document root.
package pathsafe

import (
	"path/filepath"
	"strings"
)

// IsSafe reports whether candidate, once fully canonicalized (absolute,
// cleaned, symlinks resolved), is root itself or a descendant of root.
// root is expected to be canonical already. Any path that cannot be
// canonicalized (e.g. a component does not exist) is treated as unsafe.
func IsSafe(root, candidate string) bool {
	if root == "" || candidate == "" {
		return false
	}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return false
	}

	if resolved == root {
		return true
	}
	return strings.HasPrefix(resolved, root+string(filepath.Separator))
}
