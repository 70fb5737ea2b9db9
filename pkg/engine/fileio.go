package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// readText reads the whole file at path.
func readText(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// writeText creates the parent directory if needed, then writes data via a
// temp file in the same directory and renames it over path.
func writeText(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// No-op once the rename has happened.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// copyFile replaces dst with the contents of src.
func copyFile(src, dst string, mode os.FileMode) error {
	data, err := readText(src)
	if err != nil {
		return err
	}
	return writeText(dst, data, mode)
}

// removeProfileDir deletes a profile directory and everything in it.
func removeProfileDir(dir string) error {
	return os.RemoveAll(dir)
}

// fileExists reports whether path is an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// listSubdirectories returns the sorted names of the directories directly under root.
func listSubdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
