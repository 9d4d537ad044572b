package epub

import (
	"archive/zip"
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperjump/docimg/internal/format"
)

// Cover locates the cover image. Strategies, in order: the EPUB 3 cover-image property,
// the EPUB 2 <meta name="cover"> reference, the guide's cover page (first image it shows),
// then any image whose id or href mentions "cover".
func (p *Package) Cover(zr *zip.Reader) (ManifestItem, bool) {
	for _, it := range p.Manifest {
		if it.HasProperty("cover-image") && isImageItem(it) {
			return it, true
		}
	}

	if p.CoverID != "" {
		if it, ok := p.Item(p.CoverID); ok && isImageItem(it) {
			return it, true
		}
		// Some producers put the href rather than the id in the meta content.
		if it, ok := p.Lookup(ResolveHref(p.OPFPath, p.CoverID)); ok && isImageItem(it) {
			return it, true
		}
	}

	for _, ref := range p.Guide {
		if ref.Type != "cover" || ref.Path == "" {
			continue
		}
		if it, ok := p.Lookup(ref.Path); ok && isImageItem(it) {
			return it, true
		}
		if it, ok := p.coverFromPage(zr, ref.Path); ok {
			return it, true
		}
	}

	for _, it := range p.Manifest {
		if !isImageItem(it) {
			continue
		}
		if strings.Contains(strings.ToLower(it.ID), "cover") || strings.Contains(strings.ToLower(it.Href), "cover") {
			return it, true
		}
	}
	return ManifestItem{}, false
}

// coverFromPage parses an XHTML cover page and returns the first image it references.
func (p *Package) coverFromPage(zr *zip.Reader, pagePath string) (ManifestItem, bool) {
	data, err := readEntry(zr, pagePath)
	if err != nil {
		return ManifestItem{}, false
	}
	src := firstImageSource(data)
	if src == "" {
		return ManifestItem{}, false
	}
	target := ResolveHref(pagePath, src)
	if it, ok := p.Lookup(target); ok && isImageItem(it) {
		return it, true
	}
	// Undeclared in the manifest: accept it when the archive holds it with an image extension.
	for _, f := range zr.File {
		if f.Name == target && format.IsSupported(format.ExtensionOf(target)) {
			return ManifestItem{Href: src, Path: target}, true
		}
	}
	return ManifestItem{}, false
}

// firstImageSource returns the src of the first <img>, or the href of the first SVG <image>.
func firstImageSource(data []byte) string {
	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "img":
				if v := attr(tok, "src"); v != "" {
					return v
				}
			case "image":
				if v := attr(tok, "href", "xlink:href"); v != "" {
					return v
				}
			}
		}
	}
}

func attr(tok html.Token, keys ...string) string {
	for _, k := range keys {
		for _, a := range tok.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			if name == k || a.Key == k {
				return strings.TrimSpace(a.Val)
			}
		}
	}
	return ""
}

func isImageItem(it ManifestItem) bool {
	return format.IsImageMIME(it.MediaType)
}
