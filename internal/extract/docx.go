package extract

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// DocxExtractor extracts text from .docx documents by reading the
// package's editable content and stripping residual XML tags.
type DocxExtractor struct{}

func (d *DocxExtractor) SupportedExtensions() []string { return []string{"docx"} }

var xmlTag = regexp.MustCompile(`<[^>]+>`)

func (d *DocxExtractor) Extract(_ context.Context, data []byte) (*Result, error) {
	r := bytes.NewReader(data)
	doc, err := docx.ReadDocxFromMemory(r, int64(len(data)))
	if err != nil {
		return nil, ragerr.ValidationError("could not parse DOCX: " + err.Error()).WithField("file")
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	text := strings.TrimSpace(xmlTag.ReplaceAllString(content, "\n"))
	text = collapseBlankLines(text)
	if text == "" {
		return nil, ragerr.ValidationError("no extractable text found in DOCX").WithField("file")
	}

	return &Result{Text: text}, nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
