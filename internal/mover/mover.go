// Package mover relocates converted outputs into a destination directory
// without overwriting existing files: on a name collision the target gets
// a " (i)" counter, probed from 1 independently per file.
package mover

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// MoveAll relocates each artifact into dest, in list order. The whole
// call fails only when dest cannot be created; per-file failures are
// logged and the entry stays in the list so a retry remains possible.
// Successfully moved entries are removed from the list. Returns the
// number moved.
func MoveAll(artifacts *[]string, dest string) (int, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("create destination %s: %w", dest, err)
	}

	moved := 0
	var kept []string
	for _, src := range *artifacts {
		target := filepath.Join(dest, filepath.Base(src))
		if _, err := os.Stat(target); err == nil {
			target = nextFree(dest, filepath.Base(src))
		}
		if err := moveFile(src, target); err != nil {
			log.Printf("move failed for %s: %v", src, err)
			kept = append(kept, src)
			continue
		}
		moved++
	}
	*artifacts = kept
	return moved, nil
}

// nextFree finds the smallest i >= 1 for which "{stem} ({i}){ext}" does
// not yet exist in dest.
func nextFree(dest, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dest, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// moveFile renames src to dst, falling back to copy+delete when the
// rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
