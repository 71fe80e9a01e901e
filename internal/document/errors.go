package document

import (
	"fmt"
	"strings"
)

type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file extension %q: %s", e.Ext, e.Path)
}

// MissingToolError reports that the external converter is not installed.
type MissingToolError struct {
	Tool string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("converter %q is not installed", e.Tool)
}

// ConversionError reports a converter that exited with an error. Stderr holds
// its diagnostic output.
type ConversionError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, detail)
}

func (e *ConversionError) Unwrap() error { return e.Err }
