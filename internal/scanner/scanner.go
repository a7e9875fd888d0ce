package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrDirectoryNotFound is returned when the scanned path does not exist.
	ErrDirectoryNotFound = errors.New("directory does not exist")
	// ErrNotADirectory is returned when the scanned path is not a directory.
	ErrNotADirectory = errors.New("not a directory")
)

// Entry is a file found during a scan. It is not re-checked before use.
type Entry struct {
	Path string // Full path on disk
	Name string // Basename
}

// List returns the regular files directly inside dir, in directory order.
// Subdirectories and special files are skipped; symlinks count when they point at a regular file.
func List(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var entries []Entry
	for _, d := range dirEntries {
		path := filepath.Join(dir, d.Name())
		if !isRegular(path, d) {
			continue
		}
		entries = append(entries, Entry{Path: path, Name: d.Name()})
	}
	return entries, nil
}

func isRegular(path string, d os.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Names returns the basenames of entries.
func Names(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
