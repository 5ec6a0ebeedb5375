// Package checksum derives content-addressed cache keys from file bytes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/tendant/thumbcache/internal/media"
)

// ChunkSize bounds the memory used while hashing.
const ChunkSize = 64 * 1024

// Compute returns the lowercase hex SHA-256 of the file at path.
func Compute(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &media.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", &media.IOError{Op: "read", Path: path, Err: err}
	}
	return sum, nil
}

// Reader hashes r until EOF.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// onlyReader hides WriterTo so CopyBuffer actually uses the bounded buffer.
type onlyReader struct{ io.Reader }
