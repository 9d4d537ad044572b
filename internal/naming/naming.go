// Package naming derives output base names for source documents.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/hyperjump/docimg/internal/models"
)

// invalidChars are replaced with '_' in names composed from EPUB metadata.
const invalidChars = `/\:*?"<>|`

// Sanitize replaces every character of / \ : * ? " < > | with '_'.
// All other characters, including non-ASCII, are kept as-is.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return '_'
		}
		return r
	}, name)
}

// ComposeEPUB builds "{author} - {title}", "{title}" or "{author}" from metadata values.
// Blank values count as absent. Returns "" when both are absent.
func ComposeEPUB(author, title string) string {
	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	switch {
	case author != "" && title != "":
		return author + " - " + title
	case title != "":
		return title
	default:
		return author
	}
}

// BaseName returns the output base name for h.
// DOCX documents use the filename stem unchanged. EPUB documents use sanitized metadata,
// falling back to the stem when metadata is missing or sanitizes to nothing usable.
func BaseName(h *models.DocumentHandle) string {
	stem := h.Stem()
	if h.Kind != models.KindEPUB || h.EPUB == nil {
		return stem
	}
	composed := ComposeEPUB(h.EPUB.Author, h.EPUB.Title)
	if !usable(composed) {
		return stem
	}
	return Sanitize(composed)
}

// usable reports whether name has a character that is neither whitespace nor invalid.
func usable(name string) bool {
	return strings.IndexFunc(name, func(r rune) bool {
		return !unicode.IsSpace(r) && !strings.ContainsRune(invalidChars, r)
	}) >= 0
}

// MetadataFilter selects EPUBs by case-insensitive substring match on title and author.
// An empty criterion matches everything.
type MetadataFilter struct {
	Title  string
	Author string
}

// IsEmpty reports whether no criterion is set.
func (f MetadataFilter) IsEmpty() bool {
	return strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Author) == ""
}

// Match reports whether meta satisfies every configured criterion.
// A set criterion never matches missing metadata.
func (f MetadataFilter) Match(meta *models.EPUBMetadata) bool {
	if f.IsEmpty() {
		return true
	}
	var title, author string
	if meta != nil {
		title, author = meta.Title, meta.Author
	}
	return containsFold(title, f.Title) && containsFold(author, f.Author)
}

func containsFold(value, criterion string) bool {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return true
	}
	if value == "" {
		return false
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(value), fold.String(criterion))
}
