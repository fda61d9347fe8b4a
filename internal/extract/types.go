// Package extract turns raw uploaded bytes into plain text plus
// whatever structural metadata the source format can report (page
// count for PDFs, and so on).
package extract

import (
	"context"
	"strings"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// Result is the output of extracting one document.
type Result struct {
	Text string

	// PageCount is 0 when the format has no notion of pages (plain text).
	PageCount int

	// Warnings are non-fatal: an extractor degraded gracefully (e.g. a
	// PDF page that failed to decode was skipped) but the caller should
	// know about it.
	Warnings []string
}

// Extractor turns file bytes into Result.
type Extractor interface {
	// Extract parses data and returns its text content.
	Extract(ctx context.Context, data []byte) (*Result, error)

	// SupportedExtensions lists the lowercase, dot-free extensions this
	// extractor handles (e.g. "pdf").
	SupportedExtensions() []string
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry builds a registry with the default extractor set: PDF,
// DOCX, and plain text.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(&PDFExtractor{})
	r.Register(&DocxExtractor{})
	r.Register(&TextExtractor{})
	return r
}

// Register adds an extractor, indexing it under every extension it reports.
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor registered for ext (without a leading dot,
// case-insensitive), or a Validation error if none is registered.
func (r *Registry) For(ext string) (Extractor, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, ragerr.ValidationError("unsupported file type: " + ext).
			WithField("file_type").
			WithDetail("supported_types", r.SupportedExtensions())
	}
	return e, nil
}

// SupportedExtensions lists every extension registered.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Validate rejects empty uploads before any extractor runs.
func Validate(data []byte) error {
	if len(data) == 0 {
		return ragerr.ValidationError("uploaded file is empty").WithField("file")
	}
	return nil
}
