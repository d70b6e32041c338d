package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteSource creates the target path with the given contents, making parent
// directories as needed.
func WriteSource(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteManifest writes a manifest CSV with the canonical header followed by
// the given rows and returns its path. Rows are raw CSV lines without
// trailing newlines.
func WriteManifest(t testing.TB, dir string, rows ...string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	lines := append([]string{"id,parent_id,kind,name,source_path,title,description"}, rows...)
	path := filepath.Join(dir, "manifest.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
