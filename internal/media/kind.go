// Package media holds the vocabulary shared by the thumbnail pipeline: media
// kinds, the closed sets of image formats and video codecs, the per-call
// source description, and the typed errors every stage reports.
package media

import (
	"path/filepath"
	"strings"
)

// Kind is the broad class of a source file.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ImageFormat identifies the still-image container of a source.
type ImageFormat int

const (
	FormatUnknown ImageFormat = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatBMP
	FormatTIFF
	FormatWebP
	FormatHEIC
	FormatRAW
)

func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	case FormatWebP:
		return "webp"
	case FormatHEIC:
		return "heic"
	case FormatRAW:
		return "raw"
	default:
		return "unknown"
	}
}

// Decodable reports whether the raster library can decode the format in process.
func (f ImageFormat) Decodable() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWebP:
		return true
	default:
		return false
	}
}

// Capability names the decoder a format would need when it is not decodable.
func (f ImageFormat) Capability() string {
	switch f {
	case FormatHEIC:
		return "libheif HEIF decoder"
	case FormatRAW:
		return "RAW sensor decoder"
	case FormatUnknown:
		return "image decoder for this extension"
	default:
		return ""
	}
}

var imageExtensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".webp": FormatWebP,
	".heic": FormatHEIC,
	".heif": FormatHEIC,
	".hif":  FormatHEIC,
	".raw":  FormatRAW,
	".cr2":  FormatRAW,
	".nef":  FormatRAW,
	".arw":  FormatRAW,
	".dng":  FormatRAW,
	".raf":  FormatRAW,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".mts":  true,
	".m2ts": true,
}

// Classify maps a path's extension to its kind and, for images, its format.
func Classify(path string) (Kind, ImageFormat) {
	ext := Extension(path)
	if f, ok := imageExtensions[ext]; ok {
		return KindImage, f
	}
	if videoExtensions[ext] {
		return KindVideo, FormatUnknown
	}
	return KindUnknown, FormatUnknown
}

// Extension returns the lower-cased extension of path including the dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
