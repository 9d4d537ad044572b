package models

import (
	"errors"
	"fmt"
)

// UnsupportedInputError reports an input file whose extension is neither .docx nor .epub.
type UnsupportedInputError struct {
	Path string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported file type: %s (supported: .docx, .epub)", e.Path)
}

// ArchiveError reports a document that could not be opened or read as a ZIP archive.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("read archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// MetadataError reports unreadable EPUB package metadata. It is recovered by falling back
// to filename naming and is never surfaced as a document failure.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("read epub metadata %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// WriteError reports a failure to create the output directory or write one image file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrorKind names the error category for summaries and history records.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		unsupported *UnsupportedInputError
		archive     *ArchiveError
		metadata    *MetadataError
		write       *WriteError
	)
	switch {
	case errors.As(err, &unsupported):
		return "unsupported_input"
	case errors.As(err, &archive):
		return "archive"
	case errors.As(err, &metadata):
		return "metadata"
	case errors.As(err, &write):
		return "write"
	default:
		return "input"
	}
}
