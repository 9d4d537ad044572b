package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docimg/internal/models"
)

func sampleSummary() *models.RunSummary {
	return &models.RunSummary{
		RunID:               "run-1",
		OutputDir:           "/out",
		Inputs:              []string{"/docs"},
		DocumentsProcessed:  3,
		DocumentsWithImages: 1,
		ImagesExtracted:     2,
		Documents: []*models.DocumentResult{
			{Path: "/docs/report.docx", Kind: models.KindDOCX, Matched: 2, Written: 2, Files: []string{"report_1.png", "report_2.jpg"}},
			{Path: "/docs/book.epub", Kind: models.KindEPUB, Skipped: true, SkipReason: "metadata filter"},
			{Path: "/docs/plain.docx", Kind: models.KindDOCX},
		},
		Failures: []models.Failure{{Path: "/docs/bad.docx", Kind: "archive", Message: "archive /docs/bad.docx: zip: not a valid zip file"}},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleSummary(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"report.docx: 2 images -> report_1.png, report_2.jpg",
		"book.epub: skipped (metadata filter)",
		"plain.docx: no images",
		"1 failure:",
		"[archive] archive /docs/bad.docx",
		"Extracted 2 images from 1 document into /out.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummary_TextNoImages(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSummary(&buf, &models.RunSummary{OutputDir: "."}, OutputText)
	if !strings.Contains(buf.String(), "No images found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleSummary(), OutputJSON); err != nil {
		t.Fatalf("WriteSummary(json): %v", err)
	}
	var decoded models.RunSummary
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.ImagesExtracted != 2 || len(decoded.Documents) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Failures) != 1 || decoded.Failures[0].Kind != "archive" {
		t.Errorf("failures = %+v", decoded.Failures)
	}
}

func TestWriteRuns(t *testing.T) {
	runs := []*models.RunSummary{{
		RunID:              "run-1",
		StartedAt:          time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		OutputDir:          "/out",
		Inputs:             []string{"/docs/a.docx"},
		DocumentsProcessed: 1,
		ImagesExtracted:    1,
	}}

	var text bytes.Buffer
	if err := WriteRuns(&text, runs, 5, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Showing 1 of 5 runs", "run-1", "1 image from 1 document, 0 failures", "/docs/a.docx -> /out"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var empty bytes.Buffer
	_ = WriteRuns(&empty, nil, 0, OutputText)
	if !strings.Contains(empty.String(), "No runs recorded.") {
		t.Errorf("got %q", empty.String())
	}

	var js bytes.Buffer
	if err := WriteRuns(&js, nil, 0, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"runs": []`) {
		t.Errorf("json output = %s", js.String())
	}
}
