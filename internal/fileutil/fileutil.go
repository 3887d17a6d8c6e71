package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MediaPattern matches the video containers the mover copies into the library.
const MediaPattern = "*.{mkv,mp4,avi}"

// IsMediaFile reports whether name has a video extension. Matching is
// case-insensitive on the base name.
func IsMediaFile(name string) bool {
	ok, err := doublestar.Match(MediaPattern, strings.ToLower(filepath.Base(name)))
	return err == nil && ok
}

// ListMediaFiles walks dir recursively and returns every media file path in
// lexical order.
func ListMediaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsMediaFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FindEntry locates name beneath root. The direct child root/name is checked
// first; otherwise the tree is walked for the first file or directory whose
// base name equals name.
func FindEntry(root, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	direct := filepath.Join(root, name)
	if _, err := os.Stat(direct); err == nil {
		return direct, true
	}

	var found string
	errStop := errors.New("stop")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && d.Name() == name {
			found = path
			return errStop
		}
		return nil
	})
	return found, found != ""
}

// Exists reports whether path can be stat'd.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveDirIfEmpty deletes dir when it has no entries. A missing directory is
// not an error.
func RemoveDirIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(dir)
}
