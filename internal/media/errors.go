package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when the source path does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("source not found: %s", e.Path) }

// NotAFileError is returned when the source path exists but is not a regular file.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string { return fmt.Sprintf("source is not a regular file: %s", e.Path) }

// UnsupportedFormatError reports a format the pipeline recognizes but cannot decode.
type UnsupportedFormatError struct {
	Extension  string
	Capability string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	if e.Capability == "" {
		return fmt.Sprintf("unsupported format %s", ext)
	}
	return fmt.Sprintf("unsupported format %s: requires %s", ext, e.Capability)
}

// DecodeError reports unreadable or corrupt media content.
type DecodeError struct {
	Format string
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Format != "" {
		b.WriteString(" ")
		b.WriteString(e.Format)
	}
	b.WriteString(" failed")
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExternalToolError reports a failed transcoder or prober subprocess. Codec is
// empty when it could not be determined.
type ExternalToolError struct {
	Tool   string
	Codec  string
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	b.WriteString(" failed")
	if e.Codec != "" {
		b.WriteString(" (codec ")
		b.WriteString(e.Codec)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("\nOutput: ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure. The underlying os error is preserved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// IsPermanent reports whether retrying err against the same input cannot succeed.
// IO failures and expired contexts are treated as transient.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var (
		notFound    *NotFoundError
		notAFile    *NotAFileError
		unsupported *UnsupportedFormatError
		decode      *DecodeError
		tool        *ExternalToolError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &notAFile), errors.As(err, &unsupported),
		errors.As(err, &decode), errors.As(err, &tool):
		return true
	}
	return false
}
