// Package cache maps content keys to thumbnail files on disk and decides
// whether an existing pair can be reused.
package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/thumbcache/internal/media"
)

// Size is a named output width.
type Size struct {
	Name  string
	Width int
}

var (
	Small  = Size{Name: "small", Width: 150}
	Medium = Size{Name: "medium", Width: 600}
)

// Sizes lists every size written for a source, smallest first.
var Sizes = []Size{Small, Medium}

// ThumbnailSet holds the absolute paths of both thumbnails for one key.
type ThumbnailSet struct {
	SmallPath  string `json:"small_path"`
	MediumPath string `json:"medium_path"`
}

// Path returns the set's path for size s.
func (t ThumbnailSet) Path(s Size) string {
	if s == Medium {
		return t.MediumPath
	}
	return t.SmallPath
}

// Decision is the outcome of a cache check.
type Decision int

const (
	Regenerate Decision = iota
	Reuse
)

func (d Decision) String() string {
	if d == Reuse {
		return "reuse"
	}
	return "regenerate"
}

// EncodeFunc writes one thumbnail's bytes.
type EncodeFunc func(w io.Writer) error

// Index resolves cache paths under a single directory.
type Index struct {
	dir string
}

// NewIndex returns an index rooted at dir. The directory is not created
// until the first Commit.
func NewIndex(dir string) (*Index, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &media.IOError{Op: "resolve", Path: dir, Err: err}
	}
	return &Index{dir: abs}, nil
}

// Dir returns the absolute cache directory.
func (i *Index) Dir() string { return i.dir }

// Paths returns the file locations for key. It does not touch the disk.
func (i *Index) Paths(key string) ThumbnailSet {
	return ThumbnailSet{
		SmallPath:  filepath.Join(i.dir, fileName(key, Small)),
		MediumPath: filepath.Join(i.dir, fileName(key, Medium)),
	}
}

func fileName(key string, s Size) string {
	return key + "_" + s.Name + ".jpg"
}

// Check reports Reuse only when both files are regular files and neither is
// older than sourceModTime.
func (i *Index) Check(set ThumbnailSet, sourceModTime time.Time) Decision {
	for _, p := range []string{set.SmallPath, set.MediumPath} {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return Regenerate
		}
		if sourceModTime.After(info.ModTime()) {
			return Regenerate
		}
	}
	return Reuse
}

// Commit writes every size for key and publishes them together. Each size is
// written to a temp file first; the temps are renamed into place only after all
// writes succeed. On failure nothing from this commit is left behind.
func (i *Index) Commit(key string, encoders map[Size]EncodeFunc) (ThumbnailSet, error) {
	for _, s := range Sizes {
		if encoders[s] == nil {
			return ThumbnailSet{}, fmt.Errorf("commit %s: missing encoder for %s", key, s.Name)
		}
	}
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return ThumbnailSet{}, &media.IOError{Op: "mkdir", Path: i.dir, Err: err}
	}

	set := i.Paths(key)
	temps := make(map[Size]string, len(Sizes))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, s := range Sizes {
		tmp, err := writeTemp(i.dir, key, s, encoders[s])
		if err != nil {
			cleanup()
			return ThumbnailSet{}, err
		}
		temps[s] = tmp
	}

	var renamed []string
	for _, s := range Sizes {
		dst := set.Path(s)
		if err := os.Rename(temps[s], dst); err != nil {
			cleanup()
			for _, p := range renamed {
				_ = os.Remove(p)
			}
			return ThumbnailSet{}, &media.IOError{Op: "rename", Path: dst, Err: err}
		}
		delete(temps, s)
		renamed = append(renamed, dst)
	}
	return set, nil
}

func writeTemp(dir, key string, s Size, encode EncodeFunc) (string, error) {
	f, err := os.CreateTemp(dir, "."+key+"_"+s.Name+"-*.tmp")
	if err != nil {
		return "", &media.IOError{Op: "create", Path: dir, Err: err}
	}
	name := f.Name()
	w := &trackingWriter{w: f}
	if err := encode(w); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", encodeError(name, w.err, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", &media.IOError{Op: "close", Path: name, Err: err}
	}
	return name, nil
}

// trackingWriter remembers the first error from the underlying file.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// encodeError classifies an encoder failure. Filesystem errors become IO
// failures; anything else is the encoder rejecting the image.
func encodeError(path string, writeErr, err error) error {
	var (
		ioErr   *media.IOError
		decErr  *media.DecodeError
		pathErr *fs.PathError
	)
	switch {
	case errors.As(err, &ioErr), errors.As(err, &decErr):
		return err
	case writeErr != nil, errors.As(err, &pathErr):
		return &media.IOError{Op: "write", Path: path, Err: err}
	}
	return &media.DecodeError{Format: "jpeg", Detail: "encode thumbnail", Err: err}
}

// Usage summarizes the thumbnails stored in the directory.
type Usage struct {
	Files int
	Bytes int64
}

// Size walks the cache directory and totals thumbnail files. A missing
// directory reports zero usage.
func (i *Index) Size() (Usage, error) {
	var u Usage
	err := filepath.WalkDir(i.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == i.dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !isThumbnail(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Files++
		u.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return Usage{}, &media.IOError{Op: "walk", Path: i.dir, Err: err}
	}
	return u, nil
}

// Clear removes every thumbnail and leftover temp file in the directory. It
// returns the number of thumbnails removed.
func (i *Index) Clear() (int, error) {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, &media.IOError{Op: "readdir", Path: i.dir, Err: err}
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isThumbnail(name) && !isTemp(name) {
			continue
		}
		p := filepath.Join(i.dir, name)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, &media.IOError{Op: "remove", Path: p, Err: err}
		}
		if isThumbnail(name) {
			removed++
		}
	}
	return removed, nil
}

func isThumbnail(name string) bool {
	for _, s := range Sizes {
		if strings.HasSuffix(name, "_"+s.Name+".jpg") && !strings.HasPrefix(name, ".") {
			return true
		}
	}
	return false
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}
