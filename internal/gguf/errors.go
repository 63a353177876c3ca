package gguf

import "fmt"

// FormatError reports a malformed or unsupported GGUF file: bad magic,
// unsupported version, unknown type code, bad alignment, a tensor window
// that runs past the end of the file, or a missing required metadata key.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "gguf: " + e.Reason
	}
	return fmt.Sprintf("gguf: %s: %s", e.Path, e.Reason)
}

func formatErrorf(path, format string, args ...any) *FormatError {
	return &FormatError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
