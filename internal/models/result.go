package models

import (
	"fmt"
	"time"
)

// DocumentResult is the outcome of extracting one source document.
// Skipped is set when the document was deliberately not extracted (metadata filter, no cover).
type DocumentResult struct {
	Path       string        `json:"path"`
	Kind       ContainerKind `json:"kind"`
	BaseName   string        `json:"base_name,omitempty"`
	Matched    int           `json:"matched"`
	Written    int           `json:"written"`
	Files      []string      `json:"files,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
	WriteErrs  []error       `json:"-"`
	Err        error         `json:"-"`
}

// Failed reports whether the document could not be processed at all.
func (r *DocumentResult) Failed() bool {
	return r.Err != nil
}

// Failure is one entry of the run failure list.
type Failure struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RunSummary aggregates the results of one run over a list of input paths.
type RunSummary struct {
	RunID               string            `json:"run_id"`
	StartedAt           time.Time         `json:"started_at"`
	FinishedAt          time.Time         `json:"finished_at"`
	OutputDir           string            `json:"output_dir"`
	Inputs              []string          `json:"inputs"`
	InputsFailed        int               `json:"inputs_failed"`
	DocumentsProcessed  int               `json:"documents_processed"`
	DocumentsWithImages int               `json:"documents_with_images"`
	ImagesExtracted     int               `json:"images_extracted"`
	Documents           []*DocumentResult `json:"documents"`
	Failures            []Failure         `json:"failures"`
}

// AddFailure appends a failure for path derived from err.
func (s *RunSummary) AddFailure(path string, err error) {
	s.Failures = append(s.Failures, Failure{Path: path, Kind: ErrorKind(err), Message: err.Error()})
}

// AddDocument folds a document result into the totals and failure list.
func (s *RunSummary) AddDocument(r *DocumentResult) {
	s.Documents = append(s.Documents, r)
	if r.Err != nil {
		r.Errors = append(r.Errors, r.Err.Error())
		s.AddFailure(r.Path, r.Err)
		return
	}
	s.DocumentsProcessed++
	if r.Written > 0 {
		s.DocumentsWithImages++
	}
	s.ImagesExtracted += r.Written
	for _, err := range r.WriteErrs {
		r.Errors = append(r.Errors, err.Error())
		s.AddFailure(r.Path, err)
	}
}

// AllInputsFailed reports whether the run had inputs and none of them produced a usable document.
func (s *RunSummary) AllInputsFailed() bool {
	return len(s.Inputs) > 0 && s.InputsFailed == len(s.Inputs)
}

// HasFailures reports whether any input path, document or entry failed.
func (s *RunSummary) HasFailures() bool {
	return len(s.Failures) > 0
}

// ExtractRequest is the input of an extraction run (CLI flags or HTTP body).
type ExtractRequest struct {
	Paths         []string `json:"paths"`
	OutputDir     string   `json:"output_dir,omitempty"`
	Formats       []string `json:"formats,omitempty"`
	Recursive     bool     `json:"recursive,omitempty"`
	NoOverwrite   bool     `json:"no_overwrite,omitempty"`
	CoverOnly     bool     `json:"cover_only,omitempty"`
	CoverFallback bool     `json:"cover_fallback,omitempty"`
	Title         string   `json:"title,omitempty"`
	Author        string   `json:"author,omitempty"`
}

// Validate checks the request and fills defaults.
// Returns an error when no path is given or cover_fallback is set without cover_only.
func (r *ExtractRequest) Validate() error {
	if len(r.Paths) == 0 {
		return fmt.Errorf("at least one input path is required")
	}
	for _, p := range r.Paths {
		if p == "" {
			return fmt.Errorf("input path cannot be empty")
		}
	}
	if r.CoverFallback && !r.CoverOnly {
		return fmt.Errorf("cover_fallback requires cover_only")
	}
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
	return nil
}
