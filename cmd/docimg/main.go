// Package main is the docimg CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docimg/internal/cli"
	"github.com/hyperjump/docimg/internal/config"
	"github.com/hyperjump/docimg/internal/models"
	"github.com/hyperjump/docimg/internal/runner"
	"github.com/hyperjump/docimg/internal/server"
	"github.com/hyperjump/docimg/internal/storage"
	"github.com/hyperjump/docimg/internal/watcher"
	"github.com/hyperjump/docimg/pkg/utils"
)

var version = "dev"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory takes precedence (for development), and a missing default file means built-in
// defaults. An explicitly given path must exist. Returns the config and the path that was
// actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == config.DefaultPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "extract":
		os.Exit(runExtract(args, os.Stdout, os.Stderr))
	case "watch":
		os.Exit(runWatch(args, os.Stderr))
	case "serve", "server":
		os.Exit(runServe(args, os.Stderr))
	case "history":
		os.Exit(runHistory(args, os.Stdout, os.Stderr))
	case "version", "--version", "-v":
		fmt.Printf("docimg version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// stringList is a flag.Value collecting repeated and comma-separated values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// parseInterleaved parses flags that may appear before, between or after positional
// arguments and returns the positionals in their original order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		// Parse consumes a terminating "--"; everything after it is positional.
		if i := len(args) - len(rest); i > 0 && args[i-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// extractFlags holds the extract subcommand flags.
type extractFlags struct {
	configPath    string
	debug         bool
	strict        bool
	outputFormat  string
	inputs        stringList
	outputDir     string
	formats       stringList
	recursive     bool
	noOverwrite   bool
	coverOnly     bool
	coverFallback bool
	title         string
	author        string
}

func newExtractFlagSet(f *extractFlags, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "config file path")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&f.strict, "strict", false, "exit with status 1 when any document or image failed")
	fs.StringVar(&f.outputFormat, "output-format", "text", "summary format: text or json")
	fs.Var(&f.inputs, "i", "input file or directory (repeatable)")
	fs.Var(&f.inputs, "input", "input file or directory (repeatable)")
	fs.StringVar(&f.outputDir, "o", "", "output directory (default from config, else .)")
	fs.StringVar(&f.outputDir, "output", "", "output directory (default from config, else .)")
	fs.Var(&f.formats, "f", "image formats to extract, comma-separated (default: all supported)")
	fs.Var(&f.formats, "formats", "image formats to extract, comma-separated (default: all supported)")
	fs.BoolVar(&f.recursive, "r", false, "descend into subdirectories")
	fs.BoolVar(&f.recursive, "recursive", false, "descend into subdirectories")
	fs.BoolVar(&f.noOverwrite, "no-overwrite", false, "keep existing files and pick a free name instead")
	fs.BoolVar(&f.coverOnly, "cover-only", false, "EPUB: extract only the cover image")
	fs.BoolVar(&f.coverFallback, "cover-fallback", false, "EPUB: with --cover-only, extract all images when no cover exists")
	fs.StringVar(&f.title, "title", "", "EPUB: only books whose title contains this text")
	fs.StringVar(&f.author, "author", "", "EPUB: only books whose author contains this text")
	fs.Usage = func() { printExtractUsage(fs) }
	return fs
}

// buildRequest merges config defaults with the flags that were set explicitly.
func buildRequest(cfg *config.Config, fs *flag.FlagSet, f *extractFlags, positional []string) models.ExtractRequest {
	req := models.ExtractRequest{
		Paths:         append(append([]string(nil), positional...), f.inputs...),
		OutputDir:     cfg.Extract.OutputDir,
		Formats:       cfg.Extract.Formats,
		Recursive:     cfg.Extract.Recursive,
		NoOverwrite:   cfg.Extract.NoOverwrite,
		CoverOnly:     cfg.EPUB.CoverOnly,
		CoverFallback: cfg.EPUB.CoverFallback,
		Title:         cfg.EPUB.Title,
		Author:        cfg.EPUB.Author,
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "o", "output":
			req.OutputDir = f.outputDir
		case "f", "formats":
			req.Formats = f.formats
		case "r", "recursive":
			req.Recursive = f.recursive
		case "no-overwrite":
			req.NoOverwrite = f.noOverwrite
		case "cover-only":
			req.CoverOnly = f.coverOnly
		case "cover-fallback":
			req.CoverFallback = f.coverFallback
		case "title":
			req.Title = f.title
		case "author":
			req.Author = f.author
		}
	})
	return req
}

// exitCode maps a finished run to the process exit status.
func exitCode(summary *models.RunSummary, strict bool) int {
	if summary.AllInputsFailed() {
		return 1
	}
	if strict && summary.HasFailures() {
		return 1
	}
	return 0
}

func runExtract(args []string, stdout, stderr io.Writer) int {
	var f extractFlags
	fs := newExtractFlagSet(&f, stderr)
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	format, err := cli.ParseOutputFormat(f.outputFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg, resolvedConfigPath, err := loadConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	req := buildRequest(cfg, fs, &f, positional)
	if len(req.Paths) == 0 {
		fmt.Fprintln(stderr, "No input paths given.")
		printExtractUsage(fs)
		return 1
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid arguments: %v\n", err)
		return 1
	}

	debugMode := cfg.Debug || f.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Debug("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", debugMode))

	run, closeFn, err := newRunner(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	summary, err := run.Run(ctx, req)
	if summary == nil {
		fmt.Fprintf(stderr, "Extraction failed: %v\n", err)
		return 1
	}
	if werr := cli.WriteSummary(stdout, summary, format); werr != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", werr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Extraction interrupted: %v\n", err)
		return 1
	}
	return exitCode(summary, f.strict)
}

// newRunner builds a runner, attaching the history store when enabled.
// The returned function releases the store.
func newRunner(cfg *config.Config, logger *zap.Logger) (*runner.Runner, func(), error) {
	opts := []runner.Option{runner.WithLogger(logger)}
	closeFn := func() {}
	if cfg.History.Enabled {
		history, err := storage.NewSQLiteHistory(cfg.History.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		opts = append(opts, runner.WithRecorder(history))
		closeFn = func() { _ = history.Close() }
	}
	return runner.New(opts...), closeFn, nil
}

// watchRequest is the extraction request used for documents found by the watcher.
func watchRequest(cfg *config.Config, path string) models.ExtractRequest {
	return models.ExtractRequest{
		Paths:         []string{path},
		OutputDir:     cfg.Extract.OutputDir,
		Formats:       cfg.Extract.Formats,
		NoOverwrite:   cfg.Extract.NoOverwrite,
		CoverOnly:     cfg.EPUB.CoverOnly,
		CoverFallback: cfg.EPUB.CoverFallback,
		Title:         cfg.EPUB.Title,
		Author:        cfg.EPUB.Author,
	}
}

func newWatcher(ctx context.Context, cfg *config.Config, run *runner.Runner, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.RecursiveOrDefault(),
		func(path string, kind models.ContainerKind) {
			summary, err := run.Run(ctx, watchRequest(cfg, path))
			if err != nil {
				logger.Warn("watch extraction failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("watch extraction finished",
				zap.String("path", path),
				zap.String("kind", string(kind)),
				zap.Int("images", summary.ImagesExtracted),
				zap.Int("failures", len(summary.Failures)))
		},
		watcher.WithLogger(logger),
	)
}

func runWatch(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputDir := fs.String("output", "", "output directory (default from config)")
	noSync := fs.Bool("no-sync", false, "skip documents already present in the watched directories")
	dirs, err := parseInterleaved(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg.Watch.Directories = append(cfg.Watch.Directories, dirs...)
	if *outputDir != "" {
		cfg.Extract.OutputDir = *outputDir
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(stderr, "No directories to watch: pass them as arguments or set watch.directories in the config.")
		return 1
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	run, closeFn, err := newRunner(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w := newWatcher(ctx, cfg, run, logger)
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return 1
	}
	defer w.Stop()
	logger.Info("watching directories", zap.Strings("directories", w.Directories()), zap.String("output_dir", cfg.Extract.OutputDir))
	if !*noSync {
		w.SyncExistingFiles()
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	return 0
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", debugMode))

	var history storage.History
	opts := []runner.Option{runner.WithLogger(logger)}
	if cfg.History.Enabled {
		h, err := storage.NewSQLiteHistory(cfg.History.DatabasePath)
		if err != nil {
			logger.Error("Failed to open history", zap.Error(err))
			return 1
		}
		defer h.Close()
		history = h
		opts = append(opts, runner.WithRecorder(h))
	}
	run := runner.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := newWatcher(ctx, cfg, run, logger)
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return 1
	}
	defer w.Stop()
	w.SyncExistingFiles()

	srv := server.NewServer(run, history, cfg, logger, w, resolvedConfigPath)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return 1
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	return 0
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	limit := fs.Int("limit", 20, "number of runs to show")
	offset := fs.Int("offset", 0, "number of runs to skip")
	runID := fs.String("run", "", "show one run with its documents")
	outputFormat := fs.String("output-format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if !cfg.History.Enabled {
		fmt.Fprintln(stderr, "History is disabled; set history.enabled in the config.")
		return 1
	}
	history, err := storage.NewSQLiteHistory(cfg.History.DatabasePath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open history: %v\n", err)
		return 1
	}
	defer history.Close()

	ctx := context.Background()
	if *runID != "" {
		run, err := history.GetRun(ctx, *runID)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load run: %v\n", err)
			return 1
		}
		if err := cli.WriteSummary(stdout, run, format); err != nil {
			fmt.Fprintf(stderr, "Output failed: %v\n", err)
			return 1
		}
		return 0
	}
	runs, err := history.ListRuns(ctx, *offset, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to list runs: %v\n", err)
		return 1
	}
	total, err := history.CountRuns(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to count runs: %v\n", err)
		return 1
	}
	if err := cli.WriteRuns(stdout, runs, total, format); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	if format == cli.OutputText {
		if n, err := history.SizeBytes(); err == nil {
			fmt.Fprintf(stdout, "\nHistory database: %s (%d bytes)\n", cfg.History.DatabasePath, n)
		}
	}
	return 0
}

// printExtractUsage prints extract subcommand usage.
func printExtractUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: docimg extract [flags] <path>...\n\n")
	fmt.Fprintf(fs.Output(), "Paths may be .docx or .epub files or directories containing them.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  docimg extract report.docx
  docimg extract -o images -f png,jpg -r ~/Documents
  docimg extract --cover-only --cover-fallback --author herbert books/
`)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `docimg - Extract embedded images from Word and EPUB documents

Usage:
  docimg extract [flags] <path>...   Extract images from documents or directories
  docimg watch [flags] [dir...]      Extract documents as they appear in watched directories
  docimg serve [flags]               Start the HTTP server (and configured watchers)
  docimg history [flags]             Show recorded extraction runs
  docimg version                     Show version
  docimg help                        Show this help

Extract Flags:
  -o, --output string       Output directory (default: .)
  -f, --formats list        Image formats, comma-separated (default: all supported)
  -i, --input path          Additional input path (repeatable)
  -r, --recursive           Descend into subdirectories
  --no-overwrite            Keep existing files, write to a free name instead
  --cover-only              EPUB: extract only the cover image
  --cover-fallback          EPUB: with --cover-only, extract all images when there is no cover
  --title, --author string  EPUB: only books whose metadata contains the text
  --output-format string    Summary format: text or json (default: text)
  --strict                  Exit with status 1 when anything failed
  --config string           Config file path (default: /usr/local/etc/docimg/config.yaml)
  --debug                   Enable debug logging

Watch Flags:
  --output string    Output directory (default from config)
  --no-sync          Skip documents already present

History Flags:
  --limit, --offset int     Page through runs
  --run string              Show one run with its documents
  --output-format string    text or json

Examples:
  docimg extract book.epub
  docimg extract -o out -r docs/
  docimg watch -output out ~/Inbox
  docimg history --limit 5`)
}
