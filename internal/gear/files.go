package gear

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stageFile copies src into dir, which the external tools need their inputs
// in. When a file of the same name is already there, "_T1" is inserted before
// the first dot of the name. It returns the path of the copy.
func stageFile(src, dir string) (string, error) {
	name := filepath.Base(src)
	dest := filepath.Join(dir, name)

	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(dir, suffixName(name, "_T1"))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %s: %w", dest, err)
	}

	if err := copyFile(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// suffixName inserts suffix before the first dot of name
func suffixName(name, suffix string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i] + suffix + name[i:]
	}
	return name + suffix
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// clearDir removes everything inside dir and keeps dir itself
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}
