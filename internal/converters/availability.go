package converters

import (
	"context"
	"strings"
)

// Status reports whether an external tool can be run.
type Status struct {
	Binary    string `json:"binary"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CheckAvailability runs "bin -version" and extracts the version string from
// the banner. A nil runner uses ExecRunner.
func CheckAvailability(ctx context.Context, run Runner, bin string) Status {
	if run == nil {
		run = ExecRunner
	}
	st := Status{Binary: bin}

	stdout, stderr, err := run(ctx, bin, "-version")
	if err != nil {
		st.Error = toolError(ctx, bin, stderr, err).Error()
		return st
	}

	st.Available = true
	st.Version = parseVersion(string(stdout))
	return st
}

// parseVersion pulls "6.1.1" out of "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(banner string) string {
	line, _, _ := strings.Cut(banner, "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}

// InstallHint returns short ffmpeg install instructions for goos, as reported
// by runtime.GOOS. ffprobe ships in the same package everywhere.
func InstallHint(goos string) string {
	var steps string
	switch goos {
	case "darwin":
		steps = "  brew install ffmpeg   (Homebrew: https://brew.sh/)\n"
	case "windows":
		steps = "  Download a build from https://www.gyan.dev/ffmpeg/builds/, extract it\n" +
			"  (e.g. to C:\\ffmpeg) and add its bin folder to PATH.\n"
	case "linux":
		steps = "  Debian/Ubuntu: sudo apt update && sudo apt install ffmpeg\n" +
			"  Fedora:        sudo dnf install ffmpeg\n" +
			"  Arch:          sudo pacman -S ffmpeg\n"
	}
	return "Install FFmpeg:\n" + steps +
		"  Static builds: https://ffmpeg.org/download.html\n" +
		"Or point --ffmpeg and --ffprobe at existing binaries.\n"
}
