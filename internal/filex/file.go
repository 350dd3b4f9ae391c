package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDirFor creates the directory that will hold the file at path.
// SQLite in-memory names and "file:" URIs are left alone.
func EnsureDirFor(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
