// Package stitching stores uploaded clips and concatenates them into one video.
package stitching

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// Store keeps uploaded clips in one directory.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save writes r to <uuid>_<base name> and returns the stored path.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", failure.Wrap(failure.CodeInternal, err, "could not prepare clip directory")
	}

	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "clip.mp4"
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%s_%s", uuid.NewString(), base))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", failure.Wrap(failure.CodeInternal, err, "could not create clip file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", failure.Wrap(failure.CodeInternal, err, "could not save clip")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", failure.Wrap(failure.CodeInternal, err, "could not save clip")
	}
	return path, nil
}

// Resolve returns the absolute form of path after checking it names an
// existing file inside the store.
func (s *Store) Resolve(path string) (string, error) {
	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", failure.Wrap(failure.CodeInternal, err, "could not resolve clip directory")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", failure.New(failure.CodeInvalidRequest, "invalid clip path %q", path)
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", failure.New(failure.CodeInvalidRequest, "clip path %q is outside the clip directory", path)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", failure.New(failure.CodeClipNotFound, "file not found: %s", path)
	}
	if err != nil {
		return "", failure.Wrap(failure.CodeInternal, err, "could not stat clip")
	}
	if info.IsDir() {
		return "", failure.New(failure.CodeInvalidRequest, "clip path %q is a directory", path)
	}
	return abs, nil
}
