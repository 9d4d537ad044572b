// Package archive opens ZIP-backed documents and enumerates the image entries they carry.
package archive

import (
	"archive/zip"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docimg/internal/epub"
	"github.com/hyperjump/docimg/internal/format"
	"github.com/hyperjump/docimg/internal/models"
)

// Scanner holds one open document. It must be closed by the caller.
type Scanner struct {
	handle  *models.DocumentHandle
	zr      *zip.ReadCloser
	pkg     *epub.Package
	metaErr error
	logger  *zap.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = l }
}

// Open opens the document at path as a ZIP archive. It returns *models.ArchiveError when
// the file is unreadable, not a ZIP, or a DRM-protected EPUB. For EPUBs, unreadable
// package metadata is recorded (see MetadataErr) and scanning falls back to extensions.
func Open(path string, kind models.ContainerKind, opts ...ScannerOption) (*Scanner, error) {
	s := &Scanner{
		handle: &models.DocumentHandle{Path: path, Kind: kind},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &models.ArchiveError{Path: path, Err: err}
	}
	s.zr = zr

	if kind == models.KindEPUB {
		if err := epub.CheckDRM(&zr.Reader); err != nil {
			_ = zr.Close()
			return nil, &models.ArchiveError{Path: path, Err: err}
		}
		pkg, err := epub.Parse(&zr.Reader)
		if err != nil {
			s.metaErr = &models.MetadataError{Path: path, Err: err}
			s.logger.Debug("epub metadata unavailable, using filename", zap.String("path", path), zap.Error(err))
		} else {
			s.pkg = pkg
			s.handle.EPUB = pkg.Metadata()
		}
	}
	return s, nil
}

// Close releases the archive. It is safe to call more than once.
func (s *Scanner) Close() error {
	if s.zr == nil {
		return nil
	}
	err := s.zr.Close()
	s.zr = nil
	return err
}

// Handle returns the document handle, including EPUB metadata when it was readable.
func (s *Scanner) Handle() *models.DocumentHandle {
	return s.handle
}

// MetadataErr returns the *models.MetadataError recorded at open time, if any.
func (s *Scanner) MetadataErr() error {
	return s.metaErr
}

// Entries yields the entries accepted by filter in archive order. Payloads are not read;
// call ImageEntry.Open while the scanner is still open.
func (s *Scanner) Entries(filter format.Filter) iter.Seq[models.ImageEntry] {
	return func(yield func(models.ImageEntry) bool) {
		if s.zr == nil {
			return
		}
		for _, f := range s.zr.File {
			entry, ok := s.match(f, filter)
			if !ok {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Count returns how many entries filter accepts.
func (s *Scanner) Count(filter format.Filter) int {
	n := 0
	for range s.Entries(filter) {
		n++
	}
	return n
}

// Cover returns the EPUB cover image entry. The filter is not applied.
// Returns false for DOCX documents, unreadable metadata, or when no cover is found.
func (s *Scanner) Cover() (models.ImageEntry, bool) {
	if s.pkg == nil || s.zr == nil {
		return models.ImageEntry{}, false
	}
	item, ok := s.pkg.Cover(&s.zr.Reader)
	if !ok {
		return models.ImageEntry{}, false
	}
	for _, f := range s.zr.File {
		if f.Name != item.Path || skippable(f) {
			continue
		}
		ext := format.ExtensionOf(f.Name)
		id := ext
		if !format.IsSupported(id) {
			id = format.ExtensionForMIME(item.MediaType)
		}
		if ext == "" {
			ext = id
		}
		if id == "" {
			ext, id = "jpg", "jpg"
		}
		return models.NewImageEntry(f.Name, int64(f.UncompressedSize64), id, ext, item.MediaType, f.Open), true
	}
	return models.ImageEntry{}, false
}

// match decides whether f is extracted. A manifest media type, when declared, decides
// inclusion: image/* includes the entry, anything else excludes it. Entries the manifest
// does not list are matched on their extension.
func (s *Scanner) match(f *zip.File, filter format.Filter) (models.ImageEntry, bool) {
	if skippable(f) {
		return models.ImageEntry{}, false
	}
	ext := format.ExtensionOf(f.Name)
	id := ext
	var mediaType string
	if s.pkg != nil {
		if item, ok := s.pkg.Lookup(f.Name); ok && item.MediaType != "" {
			if !format.IsImageMIME(item.MediaType) {
				return models.ImageEntry{}, false
			}
			mediaType = item.MediaType
			if !format.IsSupported(id) {
				id = format.ExtensionForMIME(mediaType)
			}
			if ext == "" {
				ext = id
			}
		}
	}
	if !filter.Allows(id) {
		return models.ImageEntry{}, false
	}
	return models.NewImageEntry(f.Name, int64(f.UncompressedSize64), id, ext, mediaType, f.Open), true
}

// skippable reports directory entries, empty entries and names that escape the archive root.
func skippable(f *zip.File) bool {
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return true
	}
	if f.UncompressedSize64 == 0 {
		return true
	}
	return !safeArchivePath(f.Name)
}

func safeArchivePath(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	if len(name) >= 2 && name[1] == ':' {
		return false
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
