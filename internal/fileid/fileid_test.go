package fileid

import (
	"strings"
	"testing"
)

func TestDocumentID(t *testing.T) {
	id1 := DocumentID("run-1", "/docs/report.docx")
	id2 := DocumentID("run-1", "/docs/report.docx")
	if id1 != id2 {
		t.Errorf("same run and path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+64 {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestDocumentID_differs(t *testing.T) {
	base := DocumentID("run-1", "/docs/report.docx")
	if base == DocumentID("run-1", "/docs/other.docx") {
		t.Error("different paths should give different IDs")
	}
	if base == DocumentID("run-2", "/docs/report.docx") {
		t.Error("different runs should give different IDs")
	}
	// The separator keeps run/path boundaries apart.
	if DocumentID("ab", "c") == DocumentID("a", "bc") {
		t.Error("run and path must not run together")
	}
}

func TestDocumentID_normalized(t *testing.T) {
	id1 := DocumentID("r", "/docs/book.epub")
	id2 := DocumentID("r", "/docs/./book.epub")
	id3 := DocumentID("r", "/docs/sub/../book.epub")
	if id1 != id2 || id1 != id3 {
		t.Errorf("cleaned paths should match: %q %q %q", id1, id2, id3)
	}
}
