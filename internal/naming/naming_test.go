package naming

import (
	"testing"

	"github.com/hyperjump/docimg/internal/models"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Normal Name", "Normal Name"},
		{"File/With\\Bad:Chars", "File_With_Bad_Chars"},
		{`Test*?"<>|`, "Test______"},
		{"Café – 東京", "Café – 東京"},
		{"  spaced  ", "  spaced  "},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseName_EPUBPrecedence(t *testing.T) {
	tests := []struct {
		name string
		meta *models.EPUBMetadata
		want string
	}{
		{"author and title", &models.EPUBMetadata{Author: "A", Title: "T"}, "A - T"},
		{"title only", &models.EPUBMetadata{Title: "T"}, "T"},
		{"author only", &models.EPUBMetadata{Author: "A"}, "A"},
		{"neither", &models.EPUBMetadata{}, "book"},
		{"nil metadata", nil, "book"},
		{"blank values", &models.EPUBMetadata{Author: "  ", Title: ""}, "book"},
		{"trimmed", &models.EPUBMetadata{Author: " Stephen King ", Title: "The Shining\n"}, "Stephen King - The Shining"},
		{"sanitized", &models.EPUBMetadata{Author: "Author/Name", Title: "Title:Subtitle"}, "Author_Name - Title_Subtitle"},
		{"only invalid characters", &models.EPUBMetadata{Title: `/:*?`}, "book"},
		{"invalid author valid title", &models.EPUBMetadata{Author: "||", Title: "Dune"}, "__ - Dune"},
		{"valid author invalid title", &models.EPUBMetadata{Author: "A", Title: "???"}, "A - ___"},
		{"invalid author only", &models.EPUBMetadata{Author: " || "}, "book"},
		{"unicode kept", &models.EPUBMetadata{Author: "Мастер", Title: "Маргарита"}, "Мастер - Маргарита"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &models.DocumentHandle{Path: "/in/book.epub", Kind: models.KindEPUB, EPUB: tt.meta}
			if got := BaseName(h); got != tt.want {
				t.Errorf("BaseName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseName_DOCXUsesStemUnsanitized(t *testing.T) {
	h := &models.DocumentHandle{Path: "/in/Quarterly: Q3*.docx", Kind: models.KindDOCX}
	if got := BaseName(h); got != "Quarterly: Q3*" {
		t.Errorf("BaseName() = %q, want stem unchanged", got)
	}
	// Metadata is ignored for DOCX.
	h.EPUB = &models.EPUBMetadata{Title: "ignored"}
	if got := BaseName(h); got != "Quarterly: Q3*" {
		t.Errorf("BaseName() = %q, want stem unchanged", got)
	}
}

func TestMetadataFilter_Match(t *testing.T) {
	meta := &models.EPUBMetadata{Title: "The Shining", Author: "Stephen King"}
	tests := []struct {
		name   string
		filter MetadataFilter
		meta   *models.EPUBMetadata
		want   bool
	}{
		{"empty filter", MetadataFilter{}, meta, true},
		{"empty filter nil meta", MetadataFilter{}, nil, true},
		{"title substring case-insensitive", MetadataFilter{Title: "shin"}, meta, true},
		{"author substring", MetadataFilter{Author: "KING"}, meta, true},
		{"both match", MetadataFilter{Title: "shining", Author: "stephen"}, meta, true},
		{"author mismatch", MetadataFilter{Title: "shining", Author: "rowling"}, meta, false},
		{"missing metadata", MetadataFilter{Title: "x"}, &models.EPUBMetadata{}, false},
		{"nil metadata", MetadataFilter{Author: "x"}, nil, false},
		{"final sigma folds", MetadataFilter{Title: "ΟΔΥΣΣΕΥΣ"}, &models.EPUBMetadata{Title: "Ομηρος: Οδυσσευς"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.meta); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
