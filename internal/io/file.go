package ioutils

import (
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

var invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFileName removes characters that are invalid in file/folder names.
//
// The characters < > : " / \ | ? * are dropped (not replaced) and surrounding
// whitespace is trimmed, so the result may be empty.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")  // Returns "Song Part 12"
//	SanitizeFileName("  <?>  ")         // Returns ""
func SanitizeFileName(name string) string {
	return strings.TrimSpace(invalidChars.ReplaceAllString(name, ""))
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RenameIfAbsent renames the directory src to dst when src is a directory
// and dst does not exist yet.
//
// It reports whether a rename happened. A missing src is not an error.
func RenameIfAbsent(src, dst string) (bool, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat %s", src)
	}
	if !info.IsDir() {
		return false, nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "stat %s", dst)
	}
	if err := os.Rename(src, dst); err != nil {
		return false, errors.Wrapf(err, "rename %s", src)
	}
	return true, nil
}
