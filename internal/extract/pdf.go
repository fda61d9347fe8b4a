package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// PDFExtractor extracts text from PDF documents page by page,
// reassembling reading order from the content stream's text-run
// positions rather than trusting stream order alone.
type PDFExtractor struct{}

func (p *PDFExtractor) SupportedExtensions() []string { return []string{"pdf"} }

func (p *PDFExtractor) Extract(_ context.Context, data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ragerr.ValidationError("could not parse PDF: " + err.Error()).WithField("file")
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	var warnings []string
	extracted := 0

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := extractPageTextOrdered(page)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
		extracted++
	}

	if extracted == 0 {
		return nil, ragerr.ValidationError("no extractable text found in PDF").WithField("file")
	}

	return &Result{
		Text:      sb.String(),
		PageCount: totalPages,
		Warnings:  warnings,
	}, nil
}

// extractPageTextOrdered groups a page's text runs into visual lines by
// Y proximity and orders lines top-to-bottom, which handles the common
// case of PDFs whose content stream does not emit text in reading
// order.
func extractPageTextOrdered(page pdf.Page) (string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return page.GetPlainText(nil)
	}

	const lineTolerance = 3.0

	type visualLine struct {
		y   float64
		buf strings.Builder
	}

	var lines []*visualLine
	var cur *visualLine

	for _, t := range content.Text {
		if cur == nil || math.Abs(t.Y-cur.y) > lineTolerance {
			lines = append(lines, &visualLine{y: t.Y})
			cur = lines[len(lines)-1]
		}
		cur.buf.WriteString(t.S)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	var parts []string
	for _, l := range lines {
		text := strings.TrimSpace(l.buf.String())
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
