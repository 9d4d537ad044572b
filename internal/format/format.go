// Package format maps file extensions and MIME types to image format identifiers
// and decides which archive entries are eligible for extraction.
package format

import (
	"path"
	"sort"
	"strings"
)

// whitelist is the fixed set of recognized image extensions.
var whitelist = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "tiff": true,
	"tif": true, "svg": true, "wmf": true, "emf": true, "webp": true, "ico": true,
}

// aliases expands a user-supplied format to every extension it covers.
var aliases = map[string][]string{
	"jpg":  {"jpg", "jpeg"},
	"jpeg": {"jpg", "jpeg"},
	"tif":  {"tiff", "tif"},
	"tiff": {"tiff", "tif"},
}

var mimeExtensions = map[string]string{
	"image/jpeg":               "jpg",
	"image/jpg":                "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/bmp":                "bmp",
	"image/webp":               "webp",
	"image/svg+xml":            "svg",
	"image/tiff":               "tiff",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
	"image/x-emf":              "emf",
	"image/emf":                "emf",
	"image/x-wmf":              "wmf",
	"image/wmf":                "wmf",
}

// Supported returns the whitelist in sorted order.
func Supported() []string {
	out := make([]string, 0, len(whitelist))
	for ext := range whitelist {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether ext (case-insensitive, without dot) is on the whitelist.
func IsSupported(ext string) bool {
	return whitelist[strings.ToLower(ext)]
}

// Filter is an immutable set of format identifiers. The zero value allows the whole whitelist.
type Filter struct {
	set map[string]bool
}

// ParseFilter builds a filter from user values. Each value may itself be a comma-separated
// list; values are trimmed, lowercased and expanded through aliases. Unrecognized values are
// returned so the caller can warn about them; they never enter the filter.
func ParseFilter(values []string) (Filter, []string) {
	var unknown []string
	set := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			f := strings.ToLower(strings.TrimSpace(part))
			if f == "" {
				continue
			}
			if exts, ok := aliases[f]; ok {
				for _, e := range exts {
					set[e] = true
				}
				continue
			}
			if whitelist[f] {
				set[f] = true
				continue
			}
			unknown = append(unknown, strings.TrimSpace(part))
		}
	}
	if len(set) == 0 {
		return Filter{}, unknown
	}
	return Filter{set: set}, unknown
}

// IsEmpty reports whether the filter falls back to the whole whitelist.
func (f Filter) IsEmpty() bool {
	return len(f.set) == 0
}

// Formats returns the active identifiers in sorted order.
func (f Filter) Formats() []string {
	if f.IsEmpty() {
		return Supported()
	}
	out := make([]string, 0, len(f.set))
	for ext := range f.set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Allows reports whether an entry with extension ext should be extracted.
// Unknown extensions are always rejected.
func (f Filter) Allows(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !whitelist[ext] {
		return false
	}
	if f.IsEmpty() {
		return true
	}
	return f.set[ext]
}

// ExtensionOf returns the lowercase extension of the last element of an archive path,
// split on its last ".". Returns "" when there is none.
func ExtensionOf(name string) string {
	base := path.Base(name)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// IsImageMIME reports whether mime declares an image media type.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

// ExtensionForMIME maps an image media type to a format identifier. Returns "" when unknown.
func ExtensionForMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mimeExtensions[mime]
}
