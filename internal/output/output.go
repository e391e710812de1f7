// Package output owns the directory that receives synthesized audio parts.
package output

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDir     = "audio_output"
	DefaultPattern = "part_%d.mp3"
)

// Dir writes numbered audio parts into a single directory.
type Dir struct {
	Path    string
	Pattern string
}

func New(path, pattern string) Dir {
	if path == "" {
		path = DefaultDir
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	return Dir{Path: path, Pattern: pattern}
}

// Ensure creates the directory if needed. An existing directory is fine.
func (d Dir) Ensure() error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// PartPath returns the file path for the 1-based part index.
func (d Dir) PartPath(index int) string {
	return filepath.Join(d.Path, fmt.Sprintf(d.Pattern, index))
}

// WritePart stores data as part index. The bytes land in a temporary file
// first so a failed write never leaves a truncated part behind.
func (d Dir) WritePart(index int, data []byte) (string, error) {
	dst := d.PartPath(index)
	tmp, err := os.CreateTemp(d.Path, ".part-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}
