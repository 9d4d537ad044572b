// Package epub reads the parts of an EPUB package needed for image extraction:
// Dublin Core title and creator, the manifest, and cover references.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/hyperjump/docimg/internal/models"
)

// Package-level errors.
var (
	ErrNoContainer      = errors.New("epub: missing META-INF/container.xml")
	ErrInvalidContainer = errors.New("epub: invalid container.xml")
	ErrNoRootfile       = errors.New("epub: no rootfile found in container.xml")
	ErrNoOPF            = errors.New("epub: missing package document (OPF)")
	ErrInvalidOPF       = errors.New("epub: invalid package document")
)

const containerPath = "META-INF/container.xml"

// ManifestItem is one resource declared in the OPF manifest.
type ManifestItem struct {
	ID         string
	Href       string
	Path       string // archive path, resolved against the OPF directory
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item declares prop (e.g. "cover-image").
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// GuideReference is an EPUB 2 <guide> entry.
type GuideReference struct {
	Type string
	Href string
	Path string
}

// Package is the parsed OPF document.
type Package struct {
	Version  string
	OPFPath  string
	Title    string
	Creators []string
	// Manifest keeps document order.
	Manifest []ManifestItem
	Guide    []GuideReference
	// CoverID is the content of an EPUB 2 <meta name="cover"> element.
	CoverID string

	byID   map[string]int
	byPath map[string]int
}

type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title   []string `xml:"title"`
		Creator []string `xml:"creator"`
		Meta    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
	Guide []struct {
		Type string `xml:"type,attr"`
		Href string `xml:"href,attr"`
	} `xml:"guide>reference"`
}

// Parse locates the OPF through META-INF/container.xml and parses it.
func Parse(zr *zip.Reader) (*Package, error) {
	opfPath, err := findRootfile(zr)
	if err != nil {
		return nil, err
	}
	data, err := readEntry(zr, opfPath)
	if err != nil {
		if errors.Is(err, errEntryNotFound) {
			return nil, ErrNoOPF
		}
		return nil, fmt.Errorf("read %s: %w", opfPath, err)
	}
	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, ErrInvalidOPF
	}

	pkg := &Package{
		Version: opf.Version,
		OPFPath: opfPath,
		byID:    make(map[string]int, len(opf.Manifest)),
		byPath:  make(map[string]int, len(opf.Manifest)),
	}
	for _, t := range opf.Metadata.Title {
		if t = strings.TrimSpace(t); t != "" {
			pkg.Title = t
			break
		}
	}
	for _, c := range opf.Metadata.Creator {
		if c = strings.TrimSpace(c); c != "" {
			pkg.Creators = append(pkg.Creators, c)
		}
	}
	for _, m := range opf.Metadata.Meta {
		if strings.EqualFold(m.Name, "cover") {
			pkg.CoverID = strings.TrimSpace(m.Content)
		}
	}
	for _, it := range opf.Manifest {
		item := ManifestItem{
			ID:         it.ID,
			Href:       it.Href,
			Path:       ResolveHref(opfPath, it.Href),
			MediaType:  strings.TrimSpace(it.MediaType),
			Properties: strings.Fields(it.Properties),
		}
		pkg.byID[item.ID] = len(pkg.Manifest)
		if _, dup := pkg.byPath[item.Path]; !dup {
			pkg.byPath[item.Path] = len(pkg.Manifest)
		}
		pkg.Manifest = append(pkg.Manifest, item)
	}
	for _, g := range opf.Guide {
		pkg.Guide = append(pkg.Guide, GuideReference{
			Type: strings.ToLower(strings.TrimSpace(g.Type)),
			Href: g.Href,
			Path: ResolveHref(opfPath, g.Href),
		})
	}
	return pkg, nil
}

// Metadata returns the naming metadata: the first title and the first creator.
// Returns nil when neither is present.
func (p *Package) Metadata() *models.EPUBMetadata {
	meta := &models.EPUBMetadata{Title: p.Title}
	if len(p.Creators) > 0 {
		meta.Author = p.Creators[0]
	}
	if meta.Title == "" && meta.Author == "" {
		return nil
	}
	return meta
}

// Lookup returns the manifest item declared for an archive path.
func (p *Package) Lookup(archivePath string) (ManifestItem, bool) {
	i, ok := p.byPath[archivePath]
	if !ok {
		return ManifestItem{}, false
	}
	return p.Manifest[i], true
}

// Item returns the manifest item with the given id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	i, ok := p.byID[id]
	if !ok {
		return ManifestItem{}, false
	}
	return p.Manifest[i], true
}

// ResolveHref resolves href (relative to the document at base) to an archive path.
// The fragment is dropped and percent-escapes are decoded.
func ResolveHref(base, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimPrefix(path.Clean(href), "/")
	}
	dir := path.Dir(base)
	if dir == "." {
		return path.Clean(href)
	}
	return path.Join(dir, href)
}

func findRootfile(zr *zip.Reader) (string, error) {
	data, err := readEntry(zr, containerPath)
	if err != nil {
		if errors.Is(err, errEntryNotFound) {
			return "", ErrNoContainer
		}
		return "", fmt.Errorf("read %s: %w", containerPath, err)
	}
	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", ErrInvalidContainer
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" && (rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "") {
			return rf.FullPath, nil
		}
	}
	if len(c.Rootfiles) > 0 && c.Rootfiles[0].FullPath != "" {
		return c.Rootfiles[0].FullPath, nil
	}
	return "", ErrNoRootfile
}

var errEntryNotFound = errors.New("epub: entry not found")

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errEntryNotFound
}
