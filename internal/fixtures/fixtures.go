// Package fixtures builds minimal .docx and .epub containers for tests.
package fixtures

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Member is one archive entry, written in the order given.
type Member struct {
	Name string
	Data []byte
}

// Image returns a member with a small non-empty payload tagged by its name.
func Image(name string) Member {
	return Member{Name: name, Data: []byte("img:" + name)}
}

// Zip writes members into a ZIP archive. Names ending in "/" become directory entries.
func Zip(members ...Member) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, m := range members {
		if strings.HasSuffix(m.Name, "/") {
			_, _ = w.CreateHeader(&zip.FileHeader{Name: m.Name, Method: zip.Store})
			continue
		}
		method := zip.Deflate
		if m.Name == "mimetype" {
			method = zip.Store
		}
		fw, _ := w.CreateHeader(&zip.FileHeader{Name: m.Name, Method: method})
		_, _ = fw.Write(m.Data)
	}
	_ = w.Close()
	return buf.Bytes()
}

// DOCX builds a Word package with the given media entries after the document parts.
func DOCX(media ...Member) []byte {
	members := []Member{
		{Name: "[Content_Types].xml", Data: []byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`)},
		{Name: "word/document.xml", Data: []byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>hello</w:t></w:r></w:p></w:body></w:document>`)},
		{Name: "word/_rels/document.xml.rels", Data: []byte(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`)},
	}
	return Zip(append(members, media...)...)
}

// ManifestItem declares one resource in the EPUB manifest. Href is relative to OEBPS/.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// EPUBOptions describes a generated EPUB. Resources are written under OEBPS/ in order.
type EPUBOptions struct {
	Title     string
	Author    string
	CoverMeta string
	Manifest  []ManifestItem
	Resources []Member
	// OmitPackage leaves out container.xml and the OPF, making metadata unreadable.
	OmitPackage bool
	// Extra members are written at the archive root after everything else.
	Extra []Member
}

// EPUB builds an EPUB archive.
func EPUB(opts EPUBOptions) []byte {
	members := []Member{{Name: "mimetype", Data: []byte("application/epub+zip")}}
	if !opts.OmitPackage {
		members = append(members,
			Member{Name: "META-INF/container.xml", Data: []byte(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`)},
			Member{Name: "OEBPS/content.opf", Data: []byte(opf(opts))},
		)
	}
	for _, r := range opts.Resources {
		members = append(members, Member{Name: "OEBPS/" + r.Name, Data: r.Data})
	}
	return Zip(append(members, opts.Extra...)...)
}

func opf(opts EPUBOptions) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	if opts.Title != "" {
		fmt.Fprintf(&b, "<dc:title>%s</dc:title>", xmlEscape(opts.Title))
	}
	if opts.Author != "" {
		fmt.Fprintf(&b, "<dc:creator>%s</dc:creator>", xmlEscape(opts.Author))
	}
	if opts.CoverMeta != "" {
		fmt.Fprintf(&b, `<meta name="cover" content="%s"/>`, xmlEscape(opts.CoverMeta))
	}
	b.WriteString("</metadata>\n  <manifest>\n")
	for _, it := range opts.Manifest {
		fmt.Fprintf(&b, `    <item id="%s" href="%s" media-type="%s"`, it.ID, it.Href, it.MediaType)
		if it.Properties != "" {
			fmt.Fprintf(&b, ` properties="%s"`, it.Properties)
		}
		b.WriteString("/>\n")
	}
	b.WriteString("  </manifest>\n  <spine/>\n</package>")
	return b.String()
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// WriteFile writes data to path with 0644 permissions.
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
