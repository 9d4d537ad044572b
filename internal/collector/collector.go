// Package collector turns input paths into the ordered list of documents to process.
package collector

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/docimg/internal/models"
)

// Candidate is a document found under an input path.
type Candidate struct {
	Path string
	Kind models.ContainerKind
}

// Collector resolves input paths. The zero value is not usable; call New.
type Collector struct {
	logger *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for skipped subdirectories.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// New returns a Collector.
func New(opts ...Option) *Collector {
	c := &Collector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect returns the documents named by path. A regular file must have a
// .docx or .epub extension. A directory yields its supported children in
// lexical order, descending into subdirectories when recursive is set.
func (c *Collector) Collect(path string, recursive bool) ([]Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("access input %s: %w", path, err)
	}
	if !info.IsDir() {
		kind, ok := models.KindFromPath(path)
		if !ok {
			return nil, &models.UnsupportedInputError{Path: path}
		}
		return []Candidate{{Path: path, Kind: kind}}, nil
	}
	if recursive {
		return c.walk(path)
	}
	return c.list(path)
}

func (c *Collector) list(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var out []Candidate
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if !isFile(p, e) {
			continue
		}
		if kind, ok := models.KindFromPath(p); ok {
			out = append(out, Candidate{Path: p, Kind: kind})
		}
	}
	return out, nil
}

func (c *Collector) walk(root string) ([]Candidate, error) {
	var out []Candidate
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			c.logger.Warn("skipping unreadable path", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !isFile(p, d) {
			return nil
		}
		if kind, ok := models.KindFromPath(p); ok {
			out = append(out, Candidate{Path: p, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return out, nil
}

// isFile reports regular files and symlinks to regular files.
func isFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
