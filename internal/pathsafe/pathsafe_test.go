package pathsafe

import (
	"os"
	"path/filepath"
	"testing"
)

// canonicalTempDir mirrors what config does with SAFE_ROOT at startup:
// the root handed to IsSafe is always symlink-free.
func canonicalTempDir(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	return root
}

func TestIsSafeDescendant(t *testing.T) {
	root := canonicalTempDir(t)
	sub := filepath.Join(root, "docs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(sub, "doc.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !IsSafe(root, file) {
		t.Errorf("IsSafe(%q, %q) = false, want true", root, file)
	}
	if !IsSafe(root, root) {
		t.Error("root itself should be safe")
	}
}

func TestIsSafeRejectsDotDotEscape(t *testing.T) {
	root := canonicalTempDir(t)
	outside := filepath.Join(filepath.Dir(root), "secret.pdf")
	if err := os.WriteFile(outside, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	candidate := filepath.Join(root, "..", "secret.pdf")
	if IsSafe(root, candidate) {
		t.Errorf("IsSafe accepted traversal candidate %q", candidate)
	}
}

func TestIsSafeRejectsAbsoluteOutside(t *testing.T) {
	root := canonicalTempDir(t)
	other := canonicalTempDir(t)
	file := filepath.Join(other, "doc.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if IsSafe(root, file) {
		t.Errorf("IsSafe accepted path outside root: %q", file)
	}
}

func TestIsSafeRejectsSymlinkEscape(t *testing.T) {
	root := canonicalTempDir(t)
	outside := canonicalTempDir(t)
	target := filepath.Join(outside, "secret.pdf")
	if err := os.WriteFile(target, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(root, "alias.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if IsSafe(root, link) {
		t.Error("IsSafe accepted a symlink pointing outside root")
	}
}

func TestIsSafeNonexistentIsUnsafe(t *testing.T) {
	root := canonicalTempDir(t)
	if IsSafe(root, filepath.Join(root, "missing.pdf")) {
		t.Error("nonexistent path should be unsafe")
	}
}

func TestIsSafeEmptyArgs(t *testing.T) {
	root := canonicalTempDir(t)
	if IsSafe("", root) || IsSafe(root, "") {
		t.Error("empty root or candidate should be unsafe")
	}
}
