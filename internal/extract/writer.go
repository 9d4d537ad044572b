// Package extract writes matched archive entries into the output directory.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docimg/internal/models"
)

// maxProbe bounds the unique-name search in no-overwrite mode.
const maxProbe = 1000

// Writer writes image entries to a flat output directory.
type Writer struct {
	outputDir   string
	noOverwrite bool
	logger      *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets a logger for per-file output.
func WithLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithNoOverwrite keeps existing files: a taken target name is probed as
// {name}_{k}.{ext} for k = 1..1000 instead of being replaced.
func WithNoOverwrite(enabled bool) WriterOption {
	return func(w *Writer) { w.noOverwrite = enabled }
}

// NewWriter returns a Writer for outputDir. The directory is created on first write.
func NewWriter(outputDir string, opts ...WriterOption) *Writer {
	if outputDir == "" {
		outputDir = "."
	}
	w := &Writer{outputDir: outputDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OutputDir returns the directory images are written to.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// Outcome is the per-document result of Write.
type Outcome struct {
	Written int
	Files   []string
	Errors  []error
}

// FileName returns the output name of the index-th (1-based) image of plan:
// "{base}.{ext}" when the plan holds a single image, "{base}_{index}.{ext}" otherwise.
func FileName(plan models.OutputPlan, index int, ext string) string {
	suffix := ""
	if ext != "" {
		suffix = "." + ext
	}
	if plan.Count > 1 {
		return fmt.Sprintf("%s_%d%s", plan.BaseName, index, suffix)
	}
	return plan.BaseName + suffix
}

// Write writes entries in order, numbering them from 1. A failing entry is recorded in
// Outcome.Errors and does not stop the remaining ones. Existing files are replaced unless
// the writer runs in no-overwrite mode.
func (w *Writer) Write(plan models.OutputPlan, entries iter.Seq[models.ImageEntry]) Outcome {
	var out Outcome
	index := 0
	for entry := range entries {
		index++
		name := FileName(plan, index, entry.Ext)
		target, err := w.writeEntry(entry, name)
		if err != nil {
			w.logger.Warn("image not written",
				zap.String("entry", entry.Name),
				zap.String("target", filepath.Join(w.outputDir, name)),
				zap.Error(err))
			out.Errors = append(out.Errors, err)
			continue
		}
		w.logger.Debug("image written", zap.String("entry", entry.Name), zap.String("target", target))
		out.Written++
		out.Files = append(out.Files, target)
	}
	return out
}

func (w *Writer) writeEntry(entry models.ImageEntry, name string) (string, error) {
	target := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", &models.WriteError{Path: target, Err: fmt.Errorf("create output directory: %w", err)}
	}
	if w.noOverwrite {
		unique, err := uniquePath(target)
		if err != nil {
			return "", &models.WriteError{Path: target, Err: err}
		}
		target = unique
	}

	rc, err := entry.Open()
	if err != nil {
		return "", &models.ArchiveError{Path: entry.Name, Err: err}
	}
	defer rc.Close()

	f, err := os.Create(target)
	if err != nil {
		return "", &models.WriteError{Path: target, Err: err}
	}
	bw := bufio.NewWriter(f)
	if _, err := io.Copy(bw, rc); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		var writeErr *os.PathError
		if errors.As(err, &writeErr) {
			return "", &models.WriteError{Path: target, Err: err}
		}
		return "", &models.ArchiveError{Path: entry.Name, Err: err}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", &models.WriteError{Path: target, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &models.WriteError{Path: target, Err: err}
	}
	return target, nil
}

// uniquePath returns target when it is free, otherwise the first free {stem}_{k}{ext}.
func uniquePath(target string) (string, error) {
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		return target, nil
	}
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for k := 1; k <= maxProbe; k++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, k, ext))
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name after %d attempts for %s", maxProbe, base)
}
