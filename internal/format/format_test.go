package format

import (
	"reflect"
	"testing"
)

func TestFilter_Allows_emptyUsesWhitelist(t *testing.T) {
	var f Filter
	for _, ext := range []string{"jpg", "JPEG", "png", "gif", "bmp", "tiff", "tif", "svg", "wmf", "emf", "webp", "ico", ".PNG"} {
		if !f.Allows(ext) {
			t.Errorf("empty filter should allow %q", ext)
		}
	}
	for _, ext := range []string{"xml", "pdf", "rels", "", "jxl"} {
		if f.Allows(ext) {
			t.Errorf("empty filter should reject %q", ext)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name        string
		values      []string
		wantFormats []string
		wantUnknown []string
	}{
		{"nil", nil, Supported(), nil},
		{"single", []string{"png"}, []string{"png"}, nil},
		{"comma list mixed case", []string{"PNG, gif"}, []string{"gif", "png"}, nil},
		{"jpg alias", []string{"jpg"}, []string{"jpeg", "jpg"}, nil},
		{"jpeg alias", []string{"JPEG"}, []string{"jpeg", "jpg"}, nil},
		{"tif alias", []string{"tif"}, []string{"tif", "tiff"}, nil},
		{"repeated values", []string{"png", "svg"}, []string{"png", "svg"}, nil},
		{"unknown only falls back", []string{"heic"}, Supported(), []string{"heic"}},
		{"unknown mixed", []string{"png,heic, "}, []string{"png"}, []string{"heic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, unknown := ParseFilter(tt.values)
			if got := f.Formats(); !reflect.DeepEqual(got, tt.wantFormats) {
				t.Errorf("Formats() = %v, want %v", got, tt.wantFormats)
			}
			if !reflect.DeepEqual(unknown, tt.wantUnknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.wantUnknown)
			}
		})
	}
}

func TestFilter_Allows_userSet(t *testing.T) {
	f, _ := ParseFilter([]string{"png"})
	if !f.Allows("PNG") {
		t.Error("filter {png} should allow PNG")
	}
	if f.Allows("jpg") {
		t.Error("filter {png} should reject jpg")
	}
	if f.IsEmpty() {
		t.Error("filter {png} should not be empty")
	}
}

func TestExtensionOf(t *testing.T) {
	tests := map[string]string{
		"word/media/image1.PNG":     "png",
		"OEBPS/images/cover.jpeg":   "jpeg",
		"word/document.xml":         "xml",
		"word/media/archive.tar.gz": "gz",
		"word/media/noext":          "",
		"word/media/.hidden":        "",
		"word/media/trailing.":      "",
		"dir.with.dots/file":        "",
		"image.svg":                 "svg",
	}
	for in, want := range tests {
		if got := ExtensionOf(in); got != want {
			t.Errorf("ExtensionOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMIME(t *testing.T) {
	if !IsImageMIME("image/png") || !IsImageMIME(" Image/JPEG") {
		t.Error("IsImageMIME should accept image/ types")
	}
	if IsImageMIME("application/xhtml+xml") {
		t.Error("IsImageMIME should reject xhtml")
	}
	tests := map[string]string{
		"image/jpeg":               "jpg",
		"image/png":                "png",
		"image/gif":                "gif",
		"image/svg+xml":            "svg",
		"image/vnd.microsoft.icon": "ico",
		"image/x-emf":              "emf",
		"image/png; charset=x":     "png",
		"image/unknown":            "",
	}
	for in, want := range tests {
		if got := ExtensionForMIME(in); got != want {
			t.Errorf("ExtensionForMIME(%q) = %q, want %q", in, got, want)
		}
	}
}
