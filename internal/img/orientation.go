package img

import (
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ReadOrientation returns the EXIF orientation tag of the file at path. The
// bool is false when the tag is absent, unreadable or outside 1..8, in which
// case the orientation is 1.
func ReadOrientation(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 1, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return 1, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1, false
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1, false
	}
	return o, true
}

// ApplyOrientation transforms img so it displays upright for EXIF orientation o.
// Orientations 5 through 8 swap width and height. imaging rotates
// counter-clockwise, so a clockwise quarter turn is Rotate270.
func ApplyOrientation(img image.Image, o int) image.Image {
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
