// Package runner drives extraction runs: collect inputs, scan each document, write its images.
package runner

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/docimg/internal/archive"
	"github.com/hyperjump/docimg/internal/collector"
	"github.com/hyperjump/docimg/internal/extract"
	"github.com/hyperjump/docimg/internal/format"
	"github.com/hyperjump/docimg/internal/models"
	"github.com/hyperjump/docimg/internal/naming"
)

// Skip reasons reported in DocumentResult.SkipReason.
const (
	SkipMetadataFilter = "metadata filter"
	SkipNoCover        = "no cover image"
	SkipCoverFiltered  = "cover format filtered"
)

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, summary *models.RunSummary) error
}

// Runner executes extraction requests one at a time.
type Runner struct {
	mu        sync.Mutex
	collector *collector.Collector
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed down to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRecorder stores each finished run, e.g. in the history database.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.collector = collector.New(collector.WithLogger(r.logger))
	return r
}

// settings is the per-run view of an ExtractRequest.
type settings struct {
	filter        format.Filter
	meta          naming.MetadataFilter
	coverOnly     bool
	coverFallback bool
}

// Run extracts images from every document named by req.Paths into req.OutputDir.
// Failures of single inputs, documents or entries are recorded in the summary and do not
// stop the run. The returned error is non-nil only for an invalid request or when ctx is
// cancelled; in the latter case the partial summary is returned as well.
func (r *Runner) Run(ctx context.Context, req models.ExtractRequest) (*models.RunSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	filter, unknown := format.ParseFilter(req.Formats)
	if len(unknown) > 0 {
		r.logger.Warn("ignoring unrecognized formats", zap.Strings("formats", unknown))
	}
	if len(req.Formats) > 0 && filter.IsEmpty() {
		r.logger.Warn("no recognized formats given, using all supported formats")
	}
	st := settings{
		filter:        filter,
		meta:          naming.MetadataFilter{Title: req.Title, Author: req.Author},
		coverOnly:     req.CoverOnly,
		coverFallback: req.CoverFallback,
	}
	writer := extract.NewWriter(req.OutputDir,
		extract.WithLogger(r.logger),
		extract.WithNoOverwrite(req.NoOverwrite),
	)

	summary := &models.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		OutputDir: req.OutputDir,
		Inputs:    req.Paths,
	}
	r.logger.Info("run started",
		zap.String("run_id", summary.RunID),
		zap.Strings("inputs", req.Paths),
		zap.String("output_dir", req.OutputDir),
		zap.Strings("formats", filter.Formats()))

	var runErr error
	for _, input := range req.Paths {
		if runErr = r.runInput(ctx, input, req.Recursive, st, writer, summary); runErr != nil {
			break
		}
	}
	summary.FinishedAt = time.Now().UTC()

	r.logger.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("documents", summary.DocumentsProcessed),
		zap.Int("documents_with_images", summary.DocumentsWithImages),
		zap.Int("images", summary.ImagesExtracted),
		zap.Int("failures", len(summary.Failures)))

	if r.recorder != nil {
		// Record with a fresh context so a cancelled run is still stored.
		if err := r.recorder.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
			r.logger.Warn("failed to record run", zap.String("run_id", summary.RunID), zap.Error(err))
		}
	}
	return summary, runErr
}

// runInput processes one input path. It returns only ctx errors.
func (r *Runner) runInput(ctx context.Context, input string, recursive bool, st settings, w *extract.Writer, summary *models.RunSummary) error {
	candidates, err := r.collector.Collect(input, recursive)
	if err != nil {
		r.logger.Warn("input skipped", zap.String("path", input), zap.Error(err))
		summary.AddFailure(input, err)
		summary.InputsFailed++
		return nil
	}
	if len(candidates) == 0 {
		r.logger.Info("no documents found", zap.String("path", input))
		return nil
	}
	failed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := r.processDocument(c, st, w)
		if res.Failed() {
			failed++
		}
		summary.AddDocument(res)
	}
	if failed == len(candidates) {
		summary.InputsFailed++
	}
	return nil
}

func (r *Runner) processDocument(c collector.Candidate, st settings, w *extract.Writer) *models.DocumentResult {
	res := &models.DocumentResult{Path: c.Path, Kind: c.Kind}
	log := r.logger.With(zap.String("path", c.Path))

	sc, err := archive.Open(c.Path, c.Kind, archive.WithLogger(r.logger))
	if err != nil {
		log.Warn("document skipped", zap.Error(err))
		res.Err = err
		return res
	}
	defer sc.Close()

	if merr := sc.MetadataErr(); merr != nil {
		log.Warn("EPUB metadata unavailable, using file name", zap.Error(merr))
	}
	h := sc.Handle()
	if c.Kind == models.KindEPUB && !st.meta.Match(h.EPUB) {
		log.Debug("EPUB does not match metadata filter")
		res.Skipped, res.SkipReason = true, SkipMetadataFilter
		return res
	}
	res.BaseName = naming.BaseName(h)

	if st.coverOnly && c.Kind == models.KindEPUB {
		cover, ok := sc.Cover()
		switch {
		case ok && !st.filter.Allows(cover.Format):
			log.Info("cover image format not allowed, skipping", zap.String("format", cover.Format))
			res.Skipped, res.SkipReason = true, SkipCoverFiltered
			return res
		case ok:
			res.Matched = 1
			r.write(res, w, models.OutputPlan{BaseName: res.BaseName, Count: 1}, single(cover))
			return res
		case !st.coverFallback:
			log.Info("no cover image found")
			res.Skipped, res.SkipReason = true, SkipNoCover
			return res
		}
		log.Info("no cover image found, extracting all images")
	}

	res.Matched = sc.Count(st.filter)
	if res.Matched == 0 {
		log.Debug("no matching images")
		return res
	}
	r.write(res, w, models.OutputPlan{BaseName: res.BaseName, Count: res.Matched}, sc.Entries(st.filter))
	return res
}

func (r *Runner) write(res *models.DocumentResult, w *extract.Writer, plan models.OutputPlan, entries iter.Seq[models.ImageEntry]) {
	out := w.Write(plan, entries)
	res.Written = out.Written
	res.WriteErrs = out.Errors
	for _, f := range out.Files {
		res.Files = append(res.Files, filepath.Base(f))
	}
	r.logger.Info("images extracted",
		zap.String("path", res.Path),
		zap.String("base_name", plan.BaseName),
		zap.Int("images", out.Written),
		zap.Int("errors", len(out.Errors)))
}

func single(e models.ImageEntry) iter.Seq[models.ImageEntry] {
	return func(yield func(models.ImageEntry) bool) {
		yield(e)
	}
}
