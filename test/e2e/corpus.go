// Package e2e provides end-to-end tests that drive whole extraction runs over a generated corpus.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/docimg/internal/fixtures"
)

// CorpusDocument is one generated document and the files a full extraction must produce for it.
type CorpusDocument struct {
	RelPath   string
	Recursive bool // only reachable with recursive collection
	Expected  []string
}

// Corpus is a directory tree of generated documents.
type Corpus struct {
	Root      string
	Documents []CorpusDocument
	Broken    []string // documents that must fail without stopping the run
}

// Expected returns every output file name the corpus produces, sorted.
func (c *Corpus) Expected(recursive bool) []string {
	var out []string
	for _, d := range c.Documents {
		if d.Recursive && !recursive {
			continue
		}
		out = append(out, d.Expected...)
	}
	sort.Strings(out)
	return out
}

// BuildCorpus writes a mixed DOCX/EPUB corpus under root: reports with 0..n images at the
// top level, books with metadata in a nested folder, and one corrupt file of each kind.
func BuildCorpus(root string) (*Corpus, error) {
	c := &Corpus{Root: root}

	for n := 0; n <= 4; n++ {
		name := fmt.Sprintf("report-%d", n)
		var media []fixtures.Member
		var expected []string
		for i := 1; i <= n; i++ {
			media = append(media, fixtures.Image(fmt.Sprintf("word/media/image%d.png", i)))
			if n == 1 {
				expected = append(expected, name+".png")
			} else {
				expected = append(expected, fmt.Sprintf("%s_%d.png", name, i))
			}
		}
		if err := c.write(name+".docx", fixtures.DOCX(media...)); err != nil {
			return nil, err
		}
		c.Documents = append(c.Documents, CorpusDocument{RelPath: name + ".docx", Expected: expected})
	}

	books := []struct {
		file, title, author string
		images              int
		expectedBase        string
	}{
		{"dune.epub", "Dune", "Frank Herbert", 2, "Frank Herbert - Dune"},
		{"untitled.epub", "", "Anonymous", 1, "Anonymous"},
		{"odd.epub", "What? Why: How", "", 1, "What_ Why_ How"},
		{"plain.epub", "", "", 3, "plain"},
	}
	for _, b := range books {
		opts := fixtures.EPUBOptions{
			Title:    b.title,
			Author:   b.author,
			Manifest: []fixtures.ManifestItem{{ID: "ch1", Href: "text/ch1.xhtml", MediaType: "application/xhtml+xml"}},
			Resources: []fixtures.Member{
				{Name: "text/ch1.xhtml", Data: []byte(`<html><body><p>text</p></body></html>`)},
			},
		}
		var expected []string
		for i := 1; i <= b.images; i++ {
			href := fmt.Sprintf("images/fig%d.jpg", i)
			opts.Manifest = append(opts.Manifest, fixtures.ManifestItem{ID: fmt.Sprintf("fig%d", i), Href: href, MediaType: "image/jpeg"})
			opts.Resources = append(opts.Resources, fixtures.Image(href))
			if b.images == 1 {
				expected = append(expected, b.expectedBase+".jpg")
			} else {
				expected = append(expected, fmt.Sprintf("%s_%d.jpg", b.expectedBase, i))
			}
		}
		rel := filepath.Join("library", "books", b.file)
		if err := c.write(rel, fixtures.EPUB(opts)); err != nil {
			return nil, err
		}
		c.Documents = append(c.Documents, CorpusDocument{RelPath: rel, Recursive: true, Expected: expected})
	}

	for _, rel := range []string{"broken.docx", filepath.Join("library", "broken.epub")} {
		if err := c.write(rel, []byte("this is not a zip archive")); err != nil {
			return nil, err
		}
		c.Broken = append(c.Broken, rel)
	}
	if err := c.write("notes.txt", []byte("ignored")); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Corpus) write(rel string, data []byte) error {
	path := filepath.Join(c.Root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fixtures.WriteFile(path, data)
}
