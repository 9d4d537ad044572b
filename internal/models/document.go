// Package models defines core data structures for documents, image entries and run results.
package models

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ContainerKind identifies the ZIP-backed container format of a source document.
type ContainerKind string

const (
	// KindDOCX is a Word .docx document.
	KindDOCX ContainerKind = "docx"
	// KindEPUB is an EPUB e-book.
	KindEPUB ContainerKind = "epub"
)

// KindFromPath infers the container kind from the file extension (case-insensitive).
// The second return is false for any extension other than .docx or .epub.
func KindFromPath(path string) (ContainerKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return KindDOCX, true
	case ".epub":
		return KindEPUB, true
	default:
		return "", false
	}
}

// EPUBMetadata holds the package metadata used for naming. Either field may be empty.
type EPUBMetadata struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// DocumentHandle identifies one opened source document.
// EPUB is nil for DOCX documents and for EPUBs whose metadata could not be read.
type DocumentHandle struct {
	Path string
	Kind ContainerKind
	EPUB *EPUBMetadata
}

// Stem returns the source filename without directory and extension.
func (h *DocumentHandle) Stem() string {
	base := filepath.Base(h.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var errNoPayload = errors.New("image entry has no payload")

// ImageEntry is one matched archive member. It only lives while its document is open.
type ImageEntry struct {
	// Name is the internal archive path ("/"-separated).
	Name string
	// Size is the uncompressed byte length.
	Size int64
	// Format is the lowercase format identifier (no dot) the filter was checked against.
	Format string
	// Ext is the lowercase extension written on the output file. It is the entry's own
	// extension whenever it has one, even when Format came from a manifest media type.
	Ext string
	// MediaType is the manifest media type for EPUB entries, empty otherwise.
	MediaType string

	open func() (io.ReadCloser, error)
}

// NewImageEntry builds an entry whose payload is read through open.
func NewImageEntry(name string, size int64, format, ext, mediaType string, open func() (io.ReadCloser, error)) ImageEntry {
	return ImageEntry{Name: name, Size: size, Format: format, Ext: ext, MediaType: mediaType, open: open}
}

// Open returns a reader over the entry payload. The caller must close it.
func (e ImageEntry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return nil, errNoPayload
	}
	return e.open()
}

// OutputPlan is the naming plan for one document: its base name and how many images matched.
type OutputPlan struct {
	BaseName string
	Count    int
}
