// Package packaging turns the output directory of a processing run into
// archives and a self-contained HTML report.
package packaging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"
)

// ZipDir writes a zip archive of src to dest. Entries are stored under the
// base name of src. An existing dest is replaced.
func ZipDir(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	z := archiver.NewZip()
	z.OverwriteExisting = true
	z.MkdirAll = true

	if err := z.Archive([]string{src}, dest); err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dest, err)
	}
	return nil
}

// ZipSubdirs zips every directory directly below dir into <dir>/<name>.zip
// and removes the directory once archived. It returns the archives written.
func ZipSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var archives []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		src := filepath.Join(dir, entry.Name())
		dest := src + ".zip"
		if err := ZipDir(src, dest); err != nil {
			return archives, err
		}
		archives = append(archives, dest)

		if err := os.RemoveAll(src); err != nil {
			return archives, fmt.Errorf("failed to remove %s: %w", src, err)
		}
	}
	return archives, nil
}
