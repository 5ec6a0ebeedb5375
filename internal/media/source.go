package media

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Source describes a file for the duration of one thumbnail call.
type Source struct {
	Path    string
	Kind    Kind
	Format  ImageFormat
	ModTime time.Time
	Size    int64
}

// Extension returns the lower-cased extension of the source path.
func (s Source) Extension() string { return Extension(s.Path) }

// Stat validates that path is an existing regular file and describes it.
// The returned path is absolute.
func Stat(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, &IOError{Op: "resolve", Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Source{}, &NotFoundError{Path: abs}
		}
		return Source{}, &IOError{Op: "stat", Path: abs, Err: err}
	}
	if !info.Mode().IsRegular() {
		return Source{}, &NotAFileError{Path: abs}
	}
	kind, format := Classify(abs)
	return Source{
		Path:    abs,
		Kind:    kind,
		Format:  format,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
