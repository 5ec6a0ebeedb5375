package media

import (
	"os"
	"path/filepath"

	"github.com/zRedShift/mimemagic"
)

const sniffSize = 4096

// Sniff detects the MIME type of the file at path from its leading bytes and
// name. Classification of sources stays extension based; this is reporting only.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	mt, err := mimemagic.MatchReader(f, filepath.Base(path), sniffSize, mimemagic.Magic)
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	return mt.MediaType(), nil
}
