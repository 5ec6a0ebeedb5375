package media

import "strings"

// CodecFamily is the closed set of video stream codecs the pipeline tells apart.
type CodecFamily int

const (
	CodecUnknown CodecFamily = iota
	CodecH264
	CodecH265
	CodecVP9
	CodecMPEG4
	CodecOther
)

// VideoCodec is a codec family plus the name ffprobe reported. Name is only
// meaningful for CodecOther.
type VideoCodec struct {
	Family CodecFamily
	Name   string
}

// UnknownCodec is used when the codec could not be determined.
var UnknownCodec = VideoCodec{Family: CodecUnknown}

// ParseCodec normalizes an ffprobe codec_name into a VideoCodec.
func ParseCodec(name string) VideoCodec {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "":
		return UnknownCodec
	case "h264", "avc", "avc1", "x264":
		return VideoCodec{Family: CodecH264}
	case "hevc", "h265", "hvc1", "hev1", "x265":
		return VideoCodec{Family: CodecH265}
	case "vp9":
		return VideoCodec{Family: CodecVP9}
	case "mpeg4", "mp4v", "xvid", "divx":
		return VideoCodec{Family: CodecMPEG4}
	default:
		return VideoCodec{Family: CodecOther, Name: n}
	}
}

// String returns the canonical codec name used as the metrics bucket key.
func (c VideoCodec) String() string {
	switch c.Family {
	case CodecH264:
		return "h264"
	case CodecH265:
		return "hevc"
	case CodecVP9:
		return "vp9"
	case CodecMPEG4:
		return "mpeg4"
	case CodecOther:
		if c.Name != "" {
			return c.Name
		}
	}
	return "unknown"
}

// Known reports whether the codec was determined at all.
func (c VideoCodec) Known() bool { return c.Family != CodecUnknown }
