// Package extract turns raw attachment bytes into plain text, one extractor
// per supported document kind. Extractors are pure functions: a fault in a
// single page, slide or row never aborts the remaining units, and a payload
// that cannot be opened at all yields an empty string rather than an error.
package extract

import (
	"path/filepath"
	"strings"
)

// Kind classifies a non-container attachment and drives extractor dispatch.
type Kind string

const (
	KindPDF            Kind = "pdf"
	KindWordprocessing Kind = "wordprocessing"
	KindSlidedeck      Kind = "slidedeck"
	KindSpreadsheet    Kind = "spreadsheet"
)

// Func extracts plain text from raw document bytes.
type Func func(data []byte) (string, error)

// Registry maps filename extensions to format kinds and kinds to their
// extractors.
type Registry struct {
	kinds map[string]Kind
	funcs map[Kind]Func
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Kind),
		funcs: make(map[Kind]Func),
	}
}

// DefaultRegistry returns a registry with the built-in extractors
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindPDF, PDFText, ".pdf")
	r.Register(KindWordprocessing, DocxText, ".docx")
	r.Register(KindSlidedeck, PptxText, ".pptx")
	r.Register(KindSpreadsheet, XlsxText, ".xlsx", ".xls")
	return r
}

// Register binds an extractor to a kind and its filename extensions
func (r *Registry) Register(kind Kind, fn Func, exts ...string) {
	r.funcs[kind] = fn
	for _, ext := range exts {
		r.kinds[strings.ToLower(ext)] = kind
	}
}

// KindFor classifies a filename by its extension, case-insensitively.
// Unknown extensions report false and are skipped by the walker.
func (r *Registry) KindFor(filename string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := r.kinds[ext]
	return kind, ok
}

// Extract runs the extractor registered for kind
func (r *Registry) Extract(kind Kind, data []byte) (string, error) {
	fn, ok := r.funcs[kind]
	if !ok {
		return "", nil
	}
	return fn(data)
}
